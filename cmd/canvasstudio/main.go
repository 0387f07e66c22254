/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"canvasstudio/internal/config"
	"canvasstudio/internal/crash"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/editor"
	applog "canvasstudio/internal/log"
	"canvasstudio/internal/storage"
	"canvasstudio/internal/telemetry"
	"canvasstudio/internal/version"
)

func usage() {
	fmt.Println("Canvas Studio")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  canvasstudio version                          Show version")
	fmt.Println("  canvasstudio new <name> [<width> <height>]    Create a document")
	fmt.Println("  canvasstudio list                             List documents, newest first")
	fmt.Println("  canvasstudio show <id>                        Print the layer stack of a document")
	fmt.Println("  canvasstudio delete <id>                      Delete a document and its revisions")
	fmt.Println("  canvasstudio export <id> <file>               Write a project file")
	fmt.Println("  canvasstudio import <file>                    Store a project file as a document")
	fmt.Println("  canvasstudio render <id> <dir> [preset]       Render PNG/PDF (preset: web|print|thumbnail)")
	fmt.Println("  canvasstudio images <id> <prompt>             Generate image variants into the stash")
	fmt.Println("  canvasstudio story <id> <plan.yaml>           Plan and generate a story campaign")
	fmt.Println("  canvasstudio clip <id> <prompt>               Generate a video clip")
	fmt.Println("  canvasstudio notes [add <title> <body>|rm <id>]  Manage notes")
	fmt.Println("  canvasstudio serve                            Run the HTTP API")
}

// app carries the wired dependencies of one CLI invocation.
type app struct {
	cfg   config.AppConfig
	aiKey string
	store storage.Backend
	tel   *telemetry.Client
	log   *slog.Logger
	// ed is the editor of the command's document, if any; crash snapshots read it.
	ed *editor.Editor
}

func (a *app) document() domain.Document {
	if a.ed == nil {
		return domain.Document{}
	}
	return a.ed.Committed()
}

func (a *app) openEditor(ctx context.Context, id string) (*editor.Editor, error) {
	doc, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.ed = editor.New(doc, editor.Options{
		Strict:           a.cfg.General.Strict,
		HistoryDepth:     a.cfg.Editor.HistoryDepth,
		AutosaveDebounce: a.cfg.Editor.AutosaveDebounce(),
		Saver:            a.store,
	})
	return a.ed, nil
}

func main() {
	cfg, key, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}

	a := &app{cfg: cfg, aiKey: key, log: l}
	a.tel = telemetry.New(telemetry.FromEnv(cfg.General.TelemetryOptIn))
	defer a.tel.Close()
	defer crash.Recover(crash.Target{Dir: config.DataDir(), Document: a.document, Telemetry: a.tel})

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "help", "--help", "-h":
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Driver:        cfg.Storage.Driver,
		SQLitePath:    cfg.Storage.SQLitePath,
		PostgresDSN:   cfg.Storage.PostgresDSN,
		KeepRevisions: cfg.Storage.KeepRevisions,
	})
	if err != nil {
		l.Error("open storage failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	a.store = store
	a.tel.Event(telemetry.AppStart, map[string]any{"command": args[0]})

	err = a.run(ctx, args)
	if cerr := store.Close(); cerr != nil {
		l.Warn("close storage failed", slog.Any("err", cerr))
	}
	a.tel.Flush(context.Background())
	var ue usageError
	switch {
	case err == nil:
	case errors.As(err, &ue):
		fmt.Println(ue.Error())
		usage()
		os.Exit(2)
	default:
		l.Error("command failed", slog.String("command", args[0]), slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

type usageError string

func (u usageError) Error() string { return string(u) }

func need(args []string, n int, msg string) error {
	if len(args) < n {
		return usageError(msg)
	}
	return nil
}

func (a *app) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "new":
		return a.cmdNew(ctx, rest)
	case "list":
		return a.cmdList(ctx)
	case "show":
		if err := need(rest, 1, "show requires <id>"); err != nil {
			return err
		}
		return a.cmdShow(ctx, rest[0])
	case "delete":
		if err := need(rest, 1, "delete requires <id>"); err != nil {
			return err
		}
		return a.store.Delete(ctx, rest[0])
	case "export":
		if err := need(rest, 2, "export requires <id> and <file>"); err != nil {
			return err
		}
		return a.cmdExport(ctx, rest[0], rest[1])
	case "import":
		if err := need(rest, 1, "import requires <file>"); err != nil {
			return err
		}
		return a.cmdImport(ctx, rest[0])
	case "render":
		if err := need(rest, 2, "render requires <id> and <dir>"); err != nil {
			return err
		}
		preset := "web"
		if len(rest) > 2 {
			preset = rest[2]
		}
		return a.cmdRender(ctx, rest[0], rest[1], preset)
	case "images":
		if err := need(rest, 2, "images requires <id> and <prompt>"); err != nil {
			return err
		}
		return a.cmdImages(ctx, rest[0], rest[1])
	case "story":
		if err := need(rest, 2, "story requires <id> and <plan.yaml>"); err != nil {
			return err
		}
		return a.cmdStory(ctx, rest[0], rest[1])
	case "clip":
		if err := need(rest, 2, "clip requires <id> and <prompt>"); err != nil {
			return err
		}
		return a.cmdClip(ctx, rest[0], rest[1])
	case "notes":
		return a.cmdNotes(ctx, rest)
	case "serve":
		return a.cmdServe(ctx)
	default:
		return usageError(fmt.Sprintf("unknown command %q", cmd))
	}
}

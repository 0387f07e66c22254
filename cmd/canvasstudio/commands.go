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
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"canvasstudio/internal/aigen"
	"canvasstudio/internal/config"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/export"
	"canvasstudio/internal/scene"
	"canvasstudio/internal/server"
	"canvasstudio/internal/storage"
	"canvasstudio/internal/studio"
	"canvasstudio/internal/telemetry"
)

func (a *app) cmdNew(ctx context.Context, args []string) error {
	if err := need(args, 1, "new requires <name>"); err != nil {
		return err
	}
	w, h := 1080, 1080
	if len(args) >= 3 {
		var err1, err2 error
		w, err1 = strconv.Atoi(args[1])
		h, err2 = strconv.Atoi(args[2])
		if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
			return usageError("width and height must be positive integers")
		}
	}
	doc := domain.NewDocument(args[0], w, h)
	if err := a.store.Save(ctx, doc); err != nil {
		return err
	}
	fmt.Println(doc.ID)
	return nil
}

func (a *app) cmdList(ctx context.Context) error {
	docs, err := a.store.GetAll(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tLAYERS\tUPDATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%s\n", d.ID, d.Name, d.Canvas.Width, d.Canvas.Height,
			len(d.LayerOrder), d.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *app) cmdShow(ctx context.Context, id string) error {
	doc, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %q  %dx%d  background=%s\n", doc.ID, doc.Name, doc.Canvas.Width, doc.Canvas.Height, doc.Canvas.Background.Mode)
	for _, lid := range scene.DisplayOrder(doc) {
		ent, kind, ok := doc.Resolve(lid)
		if !ok {
			continue
		}
		desc := domain.Describe(ent)
		flags := ""
		if kind != domain.KindGlobalFX {
			if b := ent.Base(); b.Hidden {
				flags += " hidden"
			} else if b.Locked {
				flags += " locked"
			}
		}
		if g, ok := doc.GroupOf(lid); ok {
			flags += " group=" + g.Name
		}
		fmt.Printf("  %-9s %s  %s%s\n", desc.Kind, lid, desc.Name, flags)
	}
	fmt.Printf("stash: %d buffer, %d library; scenes: %d; clips: %d\n",
		len(scene.Buffer(doc)), len(scene.Library(doc)), len(doc.Scenes), len(doc.Clips))
	return nil
}

func (a *app) cmdExport(ctx context.Context, id, path string) error {
	doc, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := storage.WriteProjectFile(path, doc); err != nil {
		return err
	}
	a.tel.Event(telemetry.ExportDone, map[string]any{"format": "project"})
	fmt.Println("Wrote", path)
	return nil
}

func (a *app) cmdImport(ctx context.Context, path string) error {
	doc, err := storage.ReadProjectFile(path)
	if err != nil {
		return err
	}
	if doc.ID == "" || doc.ID == domain.DraftID {
		doc.ID = domain.NewID()
	}
	if err := a.store.Save(ctx, doc); err != nil {
		return err
	}
	fmt.Println(doc.ID)
	return nil
}

func (a *app) cmdRender(ctx context.Context, id, dir, preset string) error {
	doc, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	p := export.PresetName(preset)
	switch p {
	case export.PresetWeb, export.PresetPrint, export.PresetThumbnail:
	default:
		return usageError(fmt.Sprintf("unknown preset %q", preset))
	}
	paths, err := export.BatchExport(doc, export.BatchOptions{Preset: p, OutDir: dir})
	for _, path := range paths {
		fmt.Println("Wrote", path)
	}
	if err != nil {
		return err
	}
	a.tel.Event(telemetry.ExportDone, map[string]any{"format": preset, "count": len(paths)})
	return nil
}

func (a *app) aiService() (aigen.Service, error) {
	if a.aiKey == "" {
		return nil, fmt.Errorf("no AI key: set %s or store one in the keyring", config.EnvAIKey)
	}
	return aigen.NewHTTPClient(a.cfg.AI.BaseURL, a.aiKey, a.cfg.AI.Timeout()), nil
}

// afterGeneration saves the document and forgets an expired key so the next run asks again.
func (a *app) afterGeneration(ctx context.Context, genErr error) error {
	if a.ed != nil {
		if err := a.ed.Flush(context.WithoutCancel(ctx)); err != nil {
			return errors.Join(genErr, err)
		}
	}
	if aigen.Classify(genErr) == aigen.FailureCredential {
		if err := config.ForgetAIKey(); err != nil {
			a.log.Warn("forget expired key failed", slog.Any("err", err))
		}
	}
	if genErr != nil {
		return errors.New(aigen.UserMessage(genErr))
	}
	return nil
}

func (a *app) cmdImages(ctx context.Context, id, prompt string) error {
	svc, err := a.aiService()
	if err != nil {
		return err
	}
	ed, err := a.openEditor(ctx, id)
	if err != nil {
		return err
	}
	st := studio.NewImageStudio(svc, ed, a.cfg.AI.Variants, a.tel.Event)
	ids, genErr := st.Generate(ctx, aigen.ImageRequest{Prompt: prompt, AspectRatio: aigen.Square})
	if err := a.afterGeneration(ctx, genErr); err != nil {
		return err
	}
	for _, aid := range ids {
		fmt.Println("asset", aid)
	}
	return nil
}

// storyPlan is the YAML layout read by the story command.
type storyPlan struct {
	Aspect string             `yaml:"aspect"`
	Scenes []studio.ScenePlan `yaml:"scenes"`
}

func (a *app) cmdStory(ctx context.Context, id, planPath string) error {
	data, err := os.ReadFile(planPath)
	if err != nil {
		return err
	}
	var plan storyPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return fmt.Errorf("parse %s: %w", planPath, err)
	}
	if len(plan.Scenes) == 0 {
		return usageError("plan has no scenes")
	}
	svc, err := a.aiService()
	if err != nil {
		return err
	}
	ed, err := a.openEditor(ctx, id)
	if err != nil {
		return err
	}
	flow := studio.NewStoryFlow(svc, ed, aigen.AspectRatio(plan.Aspect), a.tel.Event)
	if _, err := flow.Plan(plan.Scenes); err != nil {
		return err
	}
	rep, runErr := flow.RunAll(ctx)
	if err := a.afterGeneration(ctx, runErr); err != nil {
		return err
	}
	fmt.Printf("submitted %d, skipped %d, failed %d", len(rep.Submitted), len(rep.Skipped), len(rep.Failed))
	if rep.Stopped {
		fmt.Print(" (stopped)")
	}
	fmt.Println()
	for _, s := range ed.Committed().Scenes {
		line := fmt.Sprintf("  %d %-10s %s", s.Index, s.Status, s.Title)
		if s.Error != "" {
			line += "  " + s.Error
		}
		fmt.Println(strings.TrimRight(line, " "))
	}
	return nil
}

func (a *app) cmdClip(ctx context.Context, id, prompt string) error {
	svc, err := a.aiService()
	if err != nil {
		return err
	}
	ed, err := a.openEditor(ctx, id)
	if err != nil {
		return err
	}
	cine := studio.NewCineStudio(svc, ed, a.cfg.AI.PollInterval(), a.tel.Event)
	clipID, err := cine.AddClip(prompt, aigen.Landscape, "720p")
	if err != nil {
		return err
	}
	fmt.Println("clip", clipID, "generating...")
	genErr := cine.GenerateClip(ctx, clipID)
	if err := a.afterGeneration(ctx, genErr); err != nil {
		return err
	}
	for _, c := range ed.Committed().Clips {
		if c.ID == clipID {
			fmt.Println(c.Status, c.VideoSrc)
		}
	}
	return nil
}

func (a *app) cmdNotes(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		notes, err := a.store.AllNotes(ctx)
		if err != nil {
			return err
		}
		for _, n := range notes {
			fmt.Printf("%s  %s  %s\n", n.ID, n.UpdatedAt.Local().Format(time.DateTime), n.Title)
		}
		return nil
	}
	switch args[0] {
	case "add":
		if err := need(args, 3, "notes add requires <title> <body>"); err != nil {
			return err
		}
		n := storage.Note{ID: domain.NewID(), Title: args[1], Body: strings.Join(args[2:], " ")}
		if err := a.store.SaveNote(ctx, n); err != nil {
			return err
		}
		fmt.Println(n.ID)
		return nil
	case "rm":
		if err := need(args, 2, "notes rm requires <id>"); err != nil {
			return err
		}
		return a.store.DeleteNote(ctx, args[1])
	default:
		return usageError(fmt.Sprintf("unknown notes command %q", args[0]))
	}
}

func (a *app) cmdServe(ctx context.Context) error {
	opts := server.Options{
		Strict:           a.cfg.General.Strict,
		HistoryDepth:     a.cfg.Editor.HistoryDepth,
		AutosaveDebounce: a.cfg.Editor.AutosaveDebounce(),
		Variants:         a.cfg.AI.Variants,
		Events:           a.tel.Event,
	}
	if svc, err := a.aiService(); err == nil {
		opts.AI = svc
	} else {
		a.log.Info("image generation disabled", slog.Any("reason", err))
	}
	srv := server.New(a.store, opts)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(a.cfg.Server.Addr) }()
	select {
	case err := <-errCh:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a crash report plus a snapshot of the
// open document, then exits non-zero.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"canvasstudio/internal/domain"
	applog "canvasstudio/internal/log"
	"canvasstudio/internal/storage"
	"canvasstudio/internal/telemetry"
	"canvasstudio/internal/version"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// Target says where reports go and which document to snapshot. All fields are optional.
type Target struct {
	// Dir receives crash-*.log and the snapshot. Empty means os.TempDir().
	Dir string
	// Document returns the document being edited when the panic hit.
	Document func() domain.Document
	// Telemetry uploads the report when the user opted in.
	Telemetry *telemetry.Client
}

func (t Target) dir() string {
	if t.Dir == "" {
		return os.TempDir()
	}
	return t.Dir
}

// Recover captures a panic, logs it with the stack, writes a report and a crash
// snapshot of the current document, and exits with code 2.
//
// Usage: defer crash.Recover(target)
func Recover(t Target) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	stamp := time.Now().Format("20060102-150405")
	reportPath, err := writeReport(t, stamp, r, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if path, err := writeSnapshot(t, stamp); err != nil {
		l.Error("crash snapshot failed", slog.Any("err", err))
	} else if path != "" {
		l.Info("crash snapshot written", slog.String("path", path))
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(t Target, stamp string, panicVal any, stack []byte) (string, error) {
	dir := t.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "crash-"+stamp+".log")

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Canvas Studio Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if doc, ok := current(t); ok {
		fmt.Fprintf(&buf, "Document: %s (%d layers)\n", doc.ID, len(doc.LayerOrder))
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	t.Telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// writeSnapshot stores the current document as a project file. It returns "" when
// there is no document to save.
func writeSnapshot(t Target, stamp string) (string, error) {
	doc, ok := current(t)
	if !ok {
		return "", nil
	}
	path := filepath.Join(t.dir(), "crash-"+stamp+storage.ProjectExt)
	if err := storage.WriteProjectFile(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

// current calls t.Document, which may itself panic on a corrupted editor.
func current(t Target) (doc domain.Document, ok bool) {
	if t.Document == nil {
		return domain.Document{}, false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	doc = t.Document()
	return doc, doc.ID != ""
}

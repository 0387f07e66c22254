/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/storage"
)

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	done := make(chan struct{})
	go func() { _, _ = io.Copy(io.Discard, r); close(done) }()
	t.Cleanup(func() {
		_ = w.Close()
		<-done
		os.Stderr = old
	})
}

func interceptExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })
	return &code
}

func find(t *testing.T, dir, suffix string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), suffix) {
			return filepath.Join(dir, e.Name())
		}
	}
	t.Fatalf("no crash-*%s in %s", suffix, dir)
	return ""
}

func TestRecoverWritesReportAndSnapshot(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	dir := t.TempDir()
	doc := domain.NewDocument("Crashy", 300, 200)

	func() {
		defer Recover(Target{Dir: dir, Document: func() domain.Document { return doc }})
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d", *code)
	}
	report, err := os.ReadFile(find(t, dir, ".log"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{"Canvas Studio Crash Report", "Panic: boom", "Document: " + doc.ID} {
		if !strings.Contains(string(report), want) {
			t.Fatalf("report lacks %q:\n%s", want, report)
		}
	}
	snap, err := storage.ReadProjectFile(find(t, dir, storage.ProjectExt))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.ID != doc.ID || snap.Name != "Crashy" {
		t.Fatalf("snapshot = %s %q", snap.ID, snap.Name)
	}
}

func TestRecoverWithoutDocument(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	dir := t.TempDir()

	func() {
		defer Recover(Target{Dir: dir, Document: func() domain.Document { panic("editor gone") }})
		panic("first")
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d", *code)
	}
	find(t, dir, ".log")
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), storage.ProjectExt) {
			t.Fatalf("unexpected snapshot %s", e.Name())
		}
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	code := interceptExit(t)
	func() {
		defer Recover(Target{Dir: t.TempDir()})
	}()
	if *code != -1 {
		t.Fatalf("exit called with %d", *code)
	}
}

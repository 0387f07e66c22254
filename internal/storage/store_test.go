/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"canvasstudio/internal/domain"
)

func openSQLite(t *testing.T, keep int) Backend {
	t.Helper()
	b, err := Open(context.Background(), Options{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "data", "studio.db"), KeepRevisions: keep})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func openPostgres(t *testing.T) Backend {
	t.Helper()
	dsn := os.Getenv("CST_PG_DSN")
	if dsn == "" {
		t.Skip("CST_PG_DSN not set")
	}
	b, err := Open(context.Background(), Options{Driver: "postgres", PostgresDSN: dsn, KeepRevisions: 3})
	if err != nil {
		t.Fatalf("Open postgres: %v", err)
	}
	ctx := context.Background()
	_ = b.ClearAll(ctx)
	_ = b.ClearNotes(ctx)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSQLiteStore(t *testing.T)   { exerciseStore(t, openSQLite(t, 3)) }
func TestPostgresStore(t *testing.T) { exerciseStore(t, openPostgres(t)) }

func TestSQLiteNotes(t *testing.T)   { exerciseNotes(t, openSQLite(t, 0)) }
func TestPostgresNotes(t *testing.T) { exerciseNotes(t, openPostgres(t)) }

func exerciseStore(t *testing.T, b Backend) {
	ctx := context.Background()
	a := domain.NewDocument("first", 800, 600)
	c := domain.NewDocument("second", 1080, 1080)

	if err := b.Save(ctx, domain.Document{ID: domain.DraftID, Name: "draft"}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if _, err := b.Get(ctx, domain.DraftID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("draft was stored: %v", err)
	}

	for _, d := range []domain.Document{a, c} {
		if err := b.Save(ctx, d); err != nil {
			t.Fatalf("save %s: %v", d.Name, err)
		}
	}
	got, err := b.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, a)
	}

	// re-saving the first document moves it to the front
	a.Name = "first, renamed"
	if err := b.Save(ctx, a); err != nil {
		t.Fatalf("resave: %v", err)
	}
	all, err := b.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != c.ID || all[0].Name != "first, renamed" {
		t.Fatalf("unexpected listing order: %v", names(all))
	}

	for i := 0; i < 4; i++ {
		if err := b.Save(ctx, a); err != nil {
			t.Fatalf("save revision: %v", err)
		}
	}
	revs, err := b.Revisions(ctx, a.ID, 10)
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	if len(revs) != 3 {
		t.Fatalf("revisions kept = %d, want 3", len(revs))
	}
	if !revs[0].SavedAt.After(revs[1].SavedAt) {
		t.Fatalf("revisions not newest first")
	}
	if n, err := b.PruneRevisions(ctx, a.ID, 1); err != nil || n != 2 {
		t.Fatalf("prune = %d, %v", n, err)
	}

	if err := b.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := b.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted document still readable: %v", err)
	}
	if revs, _ := b.Revisions(ctx, a.ID, 10); len(revs) != 0 {
		t.Fatalf("revisions survived delete")
	}
	if err := b.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if all, _ := b.GetAll(ctx); len(all) != 0 {
		t.Fatalf("documents after clear: %v", names(all))
	}
}

func exerciseNotes(t *testing.T, b Backend) {
	ctx := context.Background()
	if err := b.SaveNote(ctx, Note{ID: "n1", Title: "Ideas", Body: "neon skyline"}); err != nil {
		t.Fatalf("save note: %v", err)
	}
	if err := b.SaveNote(ctx, Note{ID: "n2", Title: "Todo", Body: "export poster"}); err != nil {
		t.Fatalf("save note: %v", err)
	}
	n, err := b.GetNote(ctx, "n1")
	if err != nil || n.Body != "neon skyline" || n.UpdatedAt.IsZero() {
		t.Fatalf("get note = %+v, %v", n, err)
	}
	all, err := b.AllNotes(ctx)
	if err != nil || len(all) != 2 || all[0].ID != "n2" {
		t.Fatalf("all notes = %+v, %v", all, err)
	}
	if err := b.DeleteNote(ctx, "n2"); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	if _, err := b.GetNote(ctx, "n2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted note readable: %v", err)
	}
	if err := b.ClearNotes(ctx); err != nil {
		t.Fatalf("clear notes: %v", err)
	}
	if all, _ := b.AllNotes(ctx); len(all) != 0 {
		t.Fatalf("notes after clear: %+v", all)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.db")
	ctx := context.Background()
	b, err := Open(ctx, Options{SQLitePath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	d := domain.NewDocument("persisted", 640, 480)
	if err := b.Save(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = b.Close()

	b, err = Open(ctx, Options{SQLitePath: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	got, err := b.Get(ctx, d.ID)
	if err != nil || got.Name != "persisted" {
		t.Fatalf("reopened get = %+v, %v", got.Name, err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "mongo"}); err == nil {
		t.Fatalf("expected error")
	}
}

func names(ds []domain.Document) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

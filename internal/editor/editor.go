/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor is the mutation gateway of a document: every panel command,
// AI flow and API call reaches the document through Apply.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"canvasstudio/internal/domain"
	applog "canvasstudio/internal/log"
	"canvasstudio/internal/matte"
	"canvasstudio/internal/raster"
	"canvasstudio/internal/scene"
	"canvasstudio/internal/undo"
)

var (
	// ErrLocked rejects a gesture on a locked layer or on locked global effects.
	ErrLocked = errors.New("layer is locked")
	// ErrUpdaterPanic wraps a panic raised inside an updater.
	ErrUpdaterPanic = errors.New("updater panicked")
)

// Updater computes the next document from the current one. It must not modify its input.
type Updater func(domain.Document) (domain.Document, error)

// Saver persists committed documents.
type Saver interface {
	Save(ctx context.Context, doc domain.Document) error
}

// Change is delivered to subscribers after every applied mutation.
type Change struct {
	Doc       domain.Document
	Committed bool
	Label     string
}

// Options configures an Editor. Zero values select defaults.
type Options struct {
	// Strict panics on invariant violations instead of rejecting the mutation.
	Strict           bool
	HistoryDepth     int
	AutosaveDebounce time.Duration
	// Saver receives debounced autosaves. Nil disables autosave.
	Saver      Saver
	Matte      scene.MatteFunc
	Compositor raster.Compositor
}

// Editor owns the live document, its undo history and the current selection.
// It is safe for concurrent use; mutations are applied one at a time.
type Editor struct {
	opts Options
	log  *slog.Logger
	hist *undo.History

	mu   sync.Mutex
	base domain.Document // last committed
	cur  domain.Document // live, may carry previews
	sel  scene.Selection
	subs []chan Change
	// previewing is set while cur holds uncommitted previews.
	previewing bool

	dirty chan struct{}
}

// New opens doc for editing.
func New(doc domain.Document, opts Options) *Editor {
	if opts.AutosaveDebounce <= 0 {
		opts.AutosaveDebounce = 1500 * time.Millisecond
	}
	if opts.Matte == nil {
		opts.Matte = matte.Generator{}.Render
	}
	return &Editor{
		opts:  opts,
		log:   applog.WithComponent("editor").With(slog.String("doc", doc.ID)),
		hist:  undo.New(undo.Config{MaxDepth: opts.HistoryDepth}),
		base:  doc,
		cur:   doc,
		dirty: make(chan struct{}, 1),
	}
}

// Document returns the live document, previews included.
func (e *Editor) Document() domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur
}

// Committed returns the last committed document.
func (e *Editor) Committed() domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.base
}

// Apply runs updater against the live document. commit=false is a preview: it replaces
// the live document without touching history. commit=true checks the document
// invariants, records one undo entry holding the last committed document and signals
// autosave. An updater error or panic leaves the document unchanged and is returned.
func (e *Editor) Apply(updater Updater, commit bool) error {
	return e.apply("edit", updater, commit)
}

func (e *Editor) apply(label string, updater Updater, commit bool) error {
	e.mu.Lock()
	next, err := run(updater, e.cur)
	if err != nil {
		e.mu.Unlock()
		e.log.Debug("mutation rejected", slog.String("label", label), slog.Any("err", err))
		return err
	}
	if commit {
		if err := domain.Validate(next); err != nil {
			e.mu.Unlock()
			e.log.Error("invariant violation, mutation aborted", slog.String("label", label), slog.Any("err", err))
			if e.opts.Strict {
				panic(err)
			}
			return err
		}
		next.UpdatedAt = domain.Now()
		e.hist.Push(e.base, label)
		e.base = next
	}
	e.cur = next
	e.previewing = !commit
	e.sel = e.sel.Prune(next)
	e.publishLocked(Change{Doc: next, Committed: commit, Label: label})
	e.mu.Unlock()

	if commit {
		e.markDirty()
	}
	return nil
}

func run(updater Updater, doc domain.Document) (next domain.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUpdaterPanic, r)
		}
	}()
	return updater(doc)
}

// Undo restores the document before the latest commit. Pending previews are dropped.
func (e *Editor) Undo() bool {
	return e.travel("undo", e.hist.Undo)
}

// Redo reapplies the latest undone commit.
func (e *Editor) Redo() bool {
	return e.travel("redo", e.hist.Redo)
}

func (e *Editor) travel(label string, step func(domain.Document) (undo.Entry, bool)) bool {
	e.mu.Lock()
	entry, ok := step(e.base)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.base, e.cur = entry.Doc, entry.Doc
	e.previewing = false
	e.sel = e.sel.Prune(entry.Doc)
	e.publishLocked(Change{Doc: entry.Doc, Committed: true, Label: label})
	e.mu.Unlock()

	e.log.Debug(label, slog.String("entry", entry.Label))
	e.markDirty()
	return true
}

// Revert drops pending previews and returns to the last committed document.
func (e *Editor) Revert() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.previewing {
		return
	}
	e.cur, e.previewing = e.base, false
	e.publishLocked(Change{Doc: e.cur, Label: "revert"})
}

// HistoryDepth reports the number of undo and redo entries.
func (e *Editor) HistoryDepth() (int, int) { return e.hist.Stats() }

// Subscribe returns a channel receiving every applied change. Slow subscribers miss
// changes rather than block the editor. cancel unregisters and closes the channel.
func (e *Editor) Subscribe(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, max(buffer, 1))
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			e.subs = slices.DeleteFunc(e.subs, func(c chan Change) bool { return c == ch })
			e.mu.Unlock()
			close(ch)
		})
	}
}

func (e *Editor) publishLocked(c Change) {
	for _, ch := range e.subs {
		select {
		case ch <- c:
		default:
			e.log.Warn("subscriber lagging, change dropped", slog.String("label", c.Label))
		}
	}
}

// Reset replaces the document wholesale and clears history. Used when a document is
// reloaded from storage or imported.
func (e *Editor) Reset(doc domain.Document) error {
	if err := domain.Validate(doc); err != nil {
		return err
	}
	e.mu.Lock()
	e.hist.Clear()
	e.base, e.cur, e.previewing = doc, doc, false
	e.sel = e.sel.Prune(doc)
	e.publishLocked(Change{Doc: doc, Committed: true, Label: "reset"})
	e.mu.Unlock()
	return nil
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"

	"canvasstudio/internal/domain"
)

// Entry is one committed checkpoint: the document as it was before the commit.
type Entry struct {
	Doc   domain.Document
	Label string
	TS    time.Time
}

// Config controls the depth cap.
type Config struct {
	// MaxDepth limits the number of undo entries kept (0 means 100).
	MaxDepth int
}

// History is the single process-wide undo/redo sequence of document snapshots.
// Snapshots share structure with the live document, so an entry costs only the
// branches later commits replaced. It is safe for concurrent use.
type History struct {
	cfg  Config
	mu   sync.Mutex
	undo []Entry
	redo []Entry
}

func New(cfg Config) *History {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 100
	}
	return &History{cfg: cfg}
}

// Push records the pre-commit document. Any new commit invalidates redo.
func (h *History) Push(before domain.Document, label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = append(h.undo, Entry{Doc: before, Label: label, TS: time.Now()})
	if n := len(h.undo) - h.cfg.MaxDepth; n > 0 {
		h.undo = append([]Entry(nil), h.undo[n:]...)
	}
	h.redo = nil
}

// Undo pops the latest checkpoint and parks current on the redo stack.
func (h *History) Undo(current domain.Document) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return Entry{}, false
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, Entry{Doc: current, Label: e.Label, TS: time.Now()})
	return e, true
}

// Redo reverses the latest Undo and parks current on the undo stack.
func (h *History) Redo(current domain.Document) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return Entry{}, false
	}
	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, Entry{Doc: current, Label: e.Label, TS: time.Now()})
	return e, true
}

// Clear drops both stacks, e.g. when another document is opened.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo = nil, nil
}

// Stats returns the stack depths for diagnostics.
func (h *History) Stats() (undoDepth, redoDepth int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}

// Labels lists the undo entries, oldest first.
func (h *History) Labels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.undo))
	for i, e := range h.undo {
		out[i] = e.Label
	}
	return out
}

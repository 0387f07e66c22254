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
	"time"

	"canvasstudio/internal/domain"
)

var (
	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("not found")
	// ErrSchema rejects a project file that does not match the project schema.
	ErrSchema = errors.New("project file does not match schema")
)

// Store is the persistence adapter for documents. Saving the draft document or a
// document without id is a no-op.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	Save(ctx context.Context, doc domain.Document) error
	Get(ctx context.Context, id string) (domain.Document, error)
	// GetAll lists documents, most recently saved first.
	GetAll(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	Revisions(ctx context.Context, id string, limit int) ([]Revision, error)
	PruneRevisions(ctx context.Context, id string, keep int) (int64, error)
}

// Note is a free-form note document.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteStore keeps notes independently of documents.
type NoteStore interface {
	SaveNote(ctx context.Context, n Note) error
	GetNote(ctx context.Context, id string) (Note, error)
	AllNotes(ctx context.Context) ([]Note, error)
	DeleteNote(ctx context.Context, id string) error
	ClearNotes(ctx context.Context) error
}

// Backend is a store holding both documents and notes.
type Backend interface {
	Store
	NoteStore
}

// Revision is one saved version of a document.
type Revision struct {
	DocID   string
	SavedAt time.Time
	Doc     domain.Document
}

func skipSave(doc domain.Document) bool {
	return doc.ID == "" || doc.ID == domain.DraftID
}

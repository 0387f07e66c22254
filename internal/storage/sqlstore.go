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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"canvasstudio/internal/domain"
	applog "canvasstudio/internal/log"
)

// queries holds one dialect's statements. Parameters are positional and numbered so
// both dialects take the same argument lists.
type queries struct {
	upsertDoc      string
	insertRevision string
	selectDoc      string
	selectDocs     string
	deleteDoc      string
	deleteDocRevs  string
	clearDocs      string
	clearRevs      string
	listRevs       string
	pruneRevs      string
	upsertNote     string
	selectNote     string
	selectNotes    string
	deleteNote     string
	clearNotes     string
}

// sqlStore is the database/sql implementation shared by the SQLite and Postgres backends.
type sqlStore struct {
	driver string
	dsn    string
	q      queries
	setup  func(ctx context.Context, db *sql.DB) error
	keep   int
	log    *slog.Logger

	db *sql.DB

	mu   sync.Mutex
	last int64
}

var _ Backend = (*sqlStore)(nil)

func (s *sqlStore) Init(ctx context.Context) error {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		s.log.Error("open failed", slog.Any("err", err))
		return fmt.Errorf("open %s: %w", s.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping %s: %w", s.driver, err)
	}
	if err := s.setup(ctx, db); err != nil {
		_ = db.Close()
		s.log.Error("schema setup failed", slog.Any("err", err))
		return err
	}
	s.db = db
	s.log.Info("store ready")
	return nil
}

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *sqlStore) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, errors.New("store not initialised")
	}
	return s.db, nil
}

// stamp returns a strictly increasing save time in Unix nanoseconds, so documents
// saved in the same clock tick still list in save order.
func (s *sqlStore) stamp() int64 {
	now := time.Now().UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now <= s.last {
		now = s.last + 1
	}
	s.last = now
	return now
}

func (s *sqlStore) Save(ctx context.Context, doc domain.Document) error {
	if skipSave(doc) {
		return nil
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	at := s.stamp()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, s.q.upsertDoc, doc.ID, doc.Name, at, string(body)); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if _, err := tx.ExecContext(ctx, s.q.insertRevision, doc.ID, at, string(body)); err != nil {
		return fmt.Errorf("save revision %s: %w", doc.ID, err)
	}
	if s.keep > 0 {
		if _, err := tx.ExecContext(ctx, s.q.pruneRevs, doc.ID, s.keep); err != nil {
			return fmt.Errorf("prune revisions %s: %w", doc.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	s.log.Debug("document saved", slog.String("doc", doc.ID), slog.Int("bytes", len(body)))
	return nil
}

func decodeDoc(body []byte) (domain.Document, error) {
	var d domain.Document
	if err := json.Unmarshal(body, &d); err != nil {
		return d, fmt.Errorf("decode document: %w", err)
	}
	return d, nil
}

func (s *sqlStore) Get(ctx context.Context, id string) (domain.Document, error) {
	db, err := s.conn()
	if err != nil {
		return domain.Document{}, err
	}
	var body []byte
	err = db.QueryRowContext(ctx, s.q.selectDoc, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, fmt.Errorf("document %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document %q: %w", id, err)
	}
	return decodeDoc(body)
}

func (s *sqlStore) GetAll(ctx context.Context) ([]domain.Document, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, s.q.selectDocs)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Document
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		d, err := decodeDoc(body)
		if err != nil {
			s.log.Warn("skipping undecodable document", slog.Any("err", err))
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, "delete document", []string{s.q.deleteDoc, s.q.deleteDocRevs}, id)
}

func (s *sqlStore) ClearAll(ctx context.Context) error {
	return s.exec(ctx, "clear documents", []string{s.q.clearDocs, s.q.clearRevs})
}

// exec runs stmts in one transaction with the same arguments.
func (s *sqlStore) exec(ctx context.Context, op string, stmts []string, args ...any) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return tx.Commit()
}

// Revisions returns up to limit saved versions of id, newest first.
func (s *sqlStore) Revisions(ctx context.Context, id string, limit int) ([]Revision, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, s.q.listRevs, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		var at int64
		var body []byte
		if err := rows.Scan(&at, &body); err != nil {
			return nil, err
		}
		d, err := decodeDoc(body)
		if err != nil {
			return nil, err
		}
		out = append(out, Revision{DocID: id, SavedAt: time.Unix(0, at).UTC(), Doc: d})
	}
	return out, rows.Err()
}

// PruneRevisions keeps the newest keep revisions of id and deletes the rest.
func (s *sqlStore) PruneRevisions(ctx context.Context, id string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, s.q.pruneRevs, id, keep)
	if err != nil {
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	return res.RowsAffected()
}

func (s *sqlStore) SaveNote(ctx context.Context, n Note) error {
	if n.ID == "" || n.ID == domain.DraftID {
		return nil
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, s.q.upsertNote, n.ID, n.Title, s.stamp(), n.Body); err != nil {
		return fmt.Errorf("save note %s: %w", n.ID, err)
	}
	return nil
}

func scanNote(sc interface{ Scan(...any) error }) (Note, error) {
	var n Note
	var at int64
	if err := sc.Scan(&n.ID, &n.Title, &at, &n.Body); err != nil {
		return n, err
	}
	n.UpdatedAt = time.Unix(0, at).UTC()
	return n, nil
}

func (s *sqlStore) GetNote(ctx context.Context, id string) (Note, error) {
	db, err := s.conn()
	if err != nil {
		return Note{}, err
	}
	n, err := scanNote(db.QueryRowContext(ctx, s.q.selectNote, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, fmt.Errorf("note %q: %w", id, ErrNotFound)
	}
	return n, err
}

// AllNotes lists notes, most recently saved first.
func (s *sqlStore) AllNotes(ctx context.Context) ([]Note, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, s.q.selectNotes)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *sqlStore) DeleteNote(ctx context.Context, id string) error {
	return s.exec(ctx, "delete note", []string{s.q.deleteNote}, id)
}

func (s *sqlStore) ClearNotes(ctx context.Context) error {
	return s.exec(ctx, "clear notes", []string{s.q.clearNotes})
}

func storeLogger(driver string) *slog.Logger {
	return applog.WithComponent("storage").With(slog.String("driver", driver))
}

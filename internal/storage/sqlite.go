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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"canvasstudio/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the local SQLite schema.
// Bump this when you perform breaking schema changes and add migrations.
const schemaVersion = 2

// language=SQL
// dialect=SQLite
var sqliteQueries = queries{
	upsertDoc: `INSERT INTO documents(id, name, saved_at, body) VALUES (?1, ?2, ?3, ?4)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, saved_at = excluded.saved_at, body = excluded.body`,
	insertRevision: `INSERT INTO revisions(doc_id, saved_at, body) VALUES (?1, ?2, ?3)`,
	selectDoc:      `SELECT body FROM documents WHERE id = ?1`,
	selectDocs:     `SELECT body FROM documents ORDER BY saved_at DESC`,
	deleteDoc:      `DELETE FROM documents WHERE id = ?1`,
	deleteDocRevs:  `DELETE FROM revisions WHERE doc_id = ?1`,
	clearDocs:      `DELETE FROM documents`,
	clearRevs:      `DELETE FROM revisions`,
	listRevs:       `SELECT saved_at, body FROM revisions WHERE doc_id = ?1 ORDER BY saved_at DESC LIMIT ?2`,
	pruneRevs: `DELETE FROM revisions WHERE doc_id = ?1 AND id NOT IN (
		SELECT id FROM revisions WHERE doc_id = ?1 ORDER BY saved_at DESC LIMIT ?2
	)`,
	upsertNote: `INSERT INTO notes(id, title, saved_at, body) VALUES (?1, ?2, ?3, ?4)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, saved_at = excluded.saved_at, body = excluded.body`,
	selectNote:  `SELECT id, title, saved_at, body FROM notes WHERE id = ?1`,
	selectNotes: `SELECT id, title, saved_at, body FROM notes ORDER BY saved_at DESC`,
	deleteNote:  `DELETE FROM notes WHERE id = ?1`,
	clearNotes:  `DELETE FROM notes`,
}

// NewSQLiteStore returns an uninitialised store backed by the database file at path.
// keep caps the revisions stored per document; 0 keeps all.
func NewSQLiteStore(path string, keep int) Backend {
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	return &sqlStore{
		driver: "sqlite",
		dsn:    dsn,
		q:      sqliteQueries,
		keep:   keep,
		log:    storeLogger("sqlite").With("path", path),
		setup: func(ctx context.Context, db *sql.DB) error {
			if strings.TrimSpace(path) == "" {
				return errors.New("sqlite path is required")
			}
			return setupSQLite(ctx, db)
		},
	}
}

// EnsureDir creates the directory holding the database file.
func EnsureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func setupSQLite(ctx context.Context, db *sql.DB) error {
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		return err
	}
	if err := ensureSchema(ctx, db); err != nil {
		return err
	}
	return runMigrations(ctx, db)
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at schema 1 and migrates forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureSchema creates the schema-1 tables.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id       TEXT    PRIMARY KEY,
			name     TEXT    NOT NULL,
			saved_at INTEGER NOT NULL,
			body     TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_saved ON documents(saved_at);`,
		`CREATE TABLE IF NOT EXISTS revisions (
			id       INTEGER PRIMARY KEY,
			doc_id   TEXT    NOT NULL,
			saved_at INTEGER NOT NULL,
			body     TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_revisions_doc_saved ON revisions(doc_id, saved_at);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// Notes store.
			stmts = []string{
				`CREATE TABLE IF NOT EXISTS notes (
					id       TEXT    PRIMARY KEY,
					title    TEXT    NOT NULL,
					saved_at INTEGER NOT NULL,
					body     TEXT    NOT NULL
				);`,
				`CREATE INDEX IF NOT EXISTS idx_notes_saved ON notes(saved_at);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

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
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// language=SQL
// dialect=PostgreSQL
var postgresQueries = queries{
	upsertDoc: `INSERT INTO documents(id, name, saved_at, body) VALUES ($1, $2, $3, $4)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, saved_at = excluded.saved_at, body = excluded.body`,
	insertRevision: `INSERT INTO revisions(doc_id, saved_at, body) VALUES ($1, $2, $3)`,
	selectDoc:      `SELECT body FROM documents WHERE id = $1`,
	selectDocs:     `SELECT body FROM documents ORDER BY saved_at DESC`,
	deleteDoc:      `DELETE FROM documents WHERE id = $1`,
	deleteDocRevs:  `DELETE FROM revisions WHERE doc_id = $1`,
	clearDocs:      `DELETE FROM documents`,
	clearRevs:      `DELETE FROM revisions`,
	listRevs:       `SELECT saved_at, body FROM revisions WHERE doc_id = $1 ORDER BY saved_at DESC LIMIT $2`,
	pruneRevs: `DELETE FROM revisions WHERE doc_id = $1 AND id NOT IN (
		SELECT id FROM revisions WHERE doc_id = $1 ORDER BY saved_at DESC LIMIT $2
	)`,
	upsertNote: `INSERT INTO notes(id, title, saved_at, body) VALUES ($1, $2, $3, $4)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, saved_at = excluded.saved_at, body = excluded.body`,
	selectNote:  `SELECT id, title, saved_at, body FROM notes WHERE id = $1`,
	selectNotes: `SELECT id, title, saved_at, body FROM notes ORDER BY saved_at DESC`,
	deleteNote:  `DELETE FROM notes WHERE id = $1`,
	clearNotes:  `DELETE FROM notes`,
}

// NewPostgresStore returns an uninitialised store for dsn. Init applies the embedded migrations.
func NewPostgresStore(dsn string, keep int) Backend {
	s := &sqlStore{
		driver: "pgx",
		dsn:    dsn,
		q:      postgresQueries,
		keep:   keep,
		log:    storeLogger("postgres"),
	}
	s.setup = func(ctx context.Context, db *sql.DB) error { return applyMigrations(ctx, db, s.log) }
	return s
}

func applyMigrations(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, fname := range files {
		v, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES ($1, $2)`, v, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	parts := strings.SplitN(path.Base(name), "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

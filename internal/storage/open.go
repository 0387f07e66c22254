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
	"fmt"
	"strings"
)

// Options selects and configures a backend.
type Options struct {
	Driver        string // sqlite | postgres
	SQLitePath    string
	PostgresDSN   string
	KeepRevisions int
}

// Open builds the configured backend and initialises it. The caller owns Close.
func Open(ctx context.Context, opts Options) (Backend, error) {
	var b Backend
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		if err := EnsureDir(opts.SQLitePath); err != nil {
			return nil, err
		}
		b = NewSQLiteStore(opts.SQLitePath, opts.KeepRevisions)
	case "postgres", "pgx":
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres driver needs a dsn")
		}
		b = NewPostgresStore(opts.PostgresDSN, opts.KeepRevisions)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
	if err := b.Init(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

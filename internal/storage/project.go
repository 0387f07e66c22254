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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"canvasstudio/internal/domain"
)

const (
	ProjectFormat  = "canvasstudio.project"
	ProjectVersion = 1
	// ProjectExt is the file extension of exported projects.
	ProjectExt     = ".csproj.json"
	BackupsDirName = "backups"
)

//go:embed schema/project.schema.json
var projectSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(projectSchema)

type envelope struct {
	Format     string          `json:"format"`
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Document   domain.Document `json:"document"`
}

// ExportProject serialises doc as a project file.
func ExportProject(doc domain.Document) ([]byte, error) {
	env := envelope{Format: ProjectFormat, Version: ProjectVersion, ExportedAt: domain.Now(), Document: doc}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	return append(data, '\n'), nil
}

// ImportProject validates data against the project schema and the document
// invariants and returns the document.
func ImportProject(data []byte) (domain.Document, error) {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Document{}, fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.Document{}, fmt.Errorf("parse project: %w", err)
	}
	if err := domain.Validate(env.Document); err != nil {
		return domain.Document{}, err
	}
	return env.Document, nil
}

// WriteProjectFile writes doc to path with transactional semantics and a timestamped
// backup of the previous file (if present) in a backups folder next to it.
func WriteProjectFile(path string, doc domain.Document) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is required")
	}
	data, err := ExportProject(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(dir, BackupsDirName, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current project: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp project: %w", werr)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace project: %w", rerr)
	}
	return nil
}

// ReadProjectFile imports the project at path. If the file is missing or invalid it
// falls back to the latest backup.
func ReadProjectFile(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		doc, ierr := ImportProject(data)
		if ierr == nil {
			return doc, nil
		}
		err = ierr
	}
	doc, berr := openFromLatestBackup(path)
	if berr != nil {
		return domain.Document{}, fmt.Errorf("read project: %w; backup attempt: %v", err, berr)
	}
	return doc, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup imports the newest readable backup of path.
func openFromLatestBackup(path string) (domain.Document, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var candidates []string
	for _, e := range ents {
		if name := e.Name(); strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return domain.Document{}, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			continue
		}
		if doc, err := ImportProject(b); err == nil {
			return doc, nil
		}
	}
	return domain.Document{}, errors.New("no readable backup")
}

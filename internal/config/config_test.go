/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type memTokens struct{ m map[string]string }

func (s *memTokens) Get(service, key string) (string, error) { return s.m[service+"/"+key], nil }
func (s *memTokens) Set(service, key, value string) error {
	s.m[service+"/"+key] = value
	return nil
}
func (s *memTokens) Delete(service, key string) error {
	delete(s.m, service+"/"+key)
	return nil
}

func useTempConfig(t *testing.T) (string, *memTokens) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvAIKey, "")
	ts := &memTokens{m: map[string]string{}}
	prev := SetTokenStore(ts)
	t.Cleanup(func() { SetTokenStore(prev) })
	return path, ts
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	useTempConfig(t)
	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.AI.Variants != 4 || key != "" {
		t.Fatalf("unexpected defaults: %+v key=%q", cfg, key)
	}
	if cfg.Storage.SQLitePath == "" {
		t.Fatalf("expected sqlite path to be derived")
	}
}

func TestSaveAndLoadRoundTripWithKeyring(t *testing.T) {
	path, ts := useTempConfig(t)
	cfg := Defaults()
	cfg.AI.BaseURL = "https://ai.example.test"
	cfg.Editor.HistoryDepth = 12
	if err := Save(cfg, "secret-key"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) == "" || strings.Contains(string(data), "secret-key") {
		t.Fatalf("api key must not be written to yaml: %s", data)
	}
	got, key, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AI.BaseURL != "https://ai.example.test" || got.Editor.HistoryDepth != 12 || key != "secret-key" {
		t.Fatalf("round trip mismatch: %+v key=%q", got, key)
	}
	if err := ForgetAIKey(); err != nil {
		t.Fatalf("ForgetAIKey: %v", err)
	}
	if len(ts.m) != 0 {
		t.Fatalf("expected keyring entry removed")
	}
}

func TestEnvOverrides(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvStorageDriver, "POSTGRES")
	t.Setenv(EnvPostgresDSN, "postgres://x@localhost/db")
	t.Setenv(EnvAITimeoutMs, "2500")
	t.Setenv(EnvStrict, "yes")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvAIKey, "env-key")
	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN == "" || !cfg.General.Strict || cfg.Logging.Format != "json" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.AI.Timeout() != 2500*time.Millisecond {
		t.Fatalf("timeout = %v", cfg.AI.Timeout())
	}
	if key != "env-key" {
		t.Fatalf("key = %q", key)
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Level: " DEBUG "}}
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.AI.Variants != 4 || dst.Editor.AutosaveDebounce() != 1500*time.Millisecond {
		t.Fatalf("merge mismatch: %+v", dst)
	}
}

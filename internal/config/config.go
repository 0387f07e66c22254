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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Storage       StorageConfig `yaml:"storage"`
	AI            AIConfig      `yaml:"ai"`
	Editor        EditorConfig  `yaml:"editor"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	// Strict turns invariant violations into panics (development builds).
	Strict         bool `yaml:"strict"`
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"` // "sqlite" | "postgres"
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// KeepRevisions caps stored revisions per document (0 keeps all).
	KeepRevisions int `yaml:"keep_revisions"`
}

type AIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	Variants       int    `yaml:"variants"`
	// The API key is not stored on disk; it lives in the OS keyring.
}

type EditorConfig struct {
	HistoryDepth       int `yaml:"history_depth"`
	AutosaveDebounceMs int `yaml:"autosave_debounce_ms"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{},
		Storage:       StorageConfig{Driver: "sqlite", SQLitePath: "", KeepRevisions: 20},
		AI:            AIConfig{BaseURL: "http://localhost:8090", TimeoutMs: 120000, PollIntervalMs: 5000, Variants: 4},
		Editor:        EditorConfig{HistoryDepth: 100, AutosaveDebounceMs: 1500},
		Server:        ServerConfig{Addr: ":8080"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "CST_CONFIG"
	EnvStrict         = "CST_STRICT"
	EnvTelemetryOptIn = "CST_TELEMETRY_OPT_IN"
	EnvStorageDriver  = "CST_STORAGE_DRIVER"
	EnvSQLitePath     = "CST_SQLITE_PATH"
	EnvPostgresDSN    = "CST_PG_DSN"
	EnvAIBaseURL      = "CST_AI_URL"
	EnvAITimeoutMs    = "CST_AI_TIMEOUT_MS"
	EnvAIKey          = "CST_AI_KEY"
	EnvServerAddr     = "CST_ADDR"
	EnvLogLevel       = "CST_LOG_LEVEL"
	EnvLogFormat      = "CST_LOG_FORMAT"
	EnvLogSource      = "CST_LOG_SOURCE"
	EnvLogFile        = "CST_LOG_FILE"
)

const (
	keyringService = "CanvasStudio"
	keyringAIKey   = "ai_api_key"
)

// TokenStore abstracts the OS keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore swaps the keyring backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// ConfigPath returns the per-user config file path, honoring CST_CONFIG.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		switch runtime.GOOS {
		case "windows":
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		default:
			base = filepath.Join(os.Getenv("HOME"), ".config")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "canvasstudio", "config.yaml"), nil
}

// DataDir returns the directory holding the default SQLite database.
func DataDir() string {
	if p, err := ConfigPath(); err == nil {
		return filepath.Dir(p)
	}
	return os.TempDir()
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The AI API key is resolved from CST_AI_KEY or the keyring and returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(DataDir(), "studio.sqlite")
	}
	key := strings.TrimSpace(os.Getenv(EnvAIKey))
	if key == "" {
		key, _ = tokenStore.Get(keyringService, keyringAIKey)
	}
	return cfg, key, nil
}

// Save writes the user config YAML and persists the AI key into the keyring (if non-empty).
func Save(cfg AppConfig, aiKey string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if aiKey != "" {
		if err := tokenStore.Set(keyringService, keyringAIKey, aiKey); err != nil {
			return err
		}
	}
	return nil
}

// ForgetAIKey removes the stored key, e.g. after the service reports an expired credential.
func ForgetAIKey() error {
	err := tokenStore.Delete(keyringService, keyringAIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.Strict = src.General.Strict
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); s != "" {
		dst.Storage.Driver = s
	}
	if s := strings.TrimSpace(src.Storage.SQLitePath); s != "" {
		dst.Storage.SQLitePath = s
	}
	if s := strings.TrimSpace(src.Storage.PostgresDSN); s != "" {
		dst.Storage.PostgresDSN = s
	}
	if src.Storage.KeepRevisions != 0 {
		dst.Storage.KeepRevisions = src.Storage.KeepRevisions
	}
	if s := strings.TrimSpace(src.AI.BaseURL); s != "" {
		dst.AI.BaseURL = s
	}
	if src.AI.TimeoutMs > 0 {
		dst.AI.TimeoutMs = src.AI.TimeoutMs
	}
	if src.AI.PollIntervalMs > 0 {
		dst.AI.PollIntervalMs = src.AI.PollIntervalMs
	}
	if src.AI.Variants > 0 {
		dst.AI.Variants = src.AI.Variants
	}
	if src.Editor.HistoryDepth > 0 {
		dst.Editor.HistoryDepth = src.Editor.HistoryDepth
	}
	if src.Editor.AutosaveDebounceMs > 0 {
		dst.Editor.AutosaveDebounceMs = src.Editor.AutosaveDebounceMs
	}
	if s := strings.TrimSpace(src.Server.Addr); s != "" {
		dst.Server.Addr = s
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStrict)); v != "" {
		cfg.General.Strict = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvSQLitePath)); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAIBaseURL)); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAITimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AI.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// Timeout returns the AI request timeout, falling back to the default.
func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutMs <= 0 {
		return time.Duration(Defaults().AI.TimeoutMs) * time.Millisecond
	}
	return time.Duration(a.TimeoutMs) * time.Millisecond
}

// PollInterval returns the interval between video job polls.
func (a AIConfig) PollInterval() time.Duration {
	if a.PollIntervalMs <= 0 {
		return time.Duration(Defaults().AI.PollIntervalMs) * time.Millisecond
	}
	return time.Duration(a.PollIntervalMs) * time.Millisecond
}

// AutosaveDebounce returns the debounce window for autosave.
func (e EditorConfig) AutosaveDebounce() time.Duration {
	if e.AutosaveDebounceMs <= 0 {
		return time.Duration(Defaults().Editor.AutosaveDebounceMs) * time.Millisecond
	}
	return time.Duration(e.AutosaveDebounceMs) * time.Millisecond
}

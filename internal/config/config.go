// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete parley configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Remote  RemoteConfig  `toml:"remote"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
}

// StorageConfig selects where conversations are kept.
type StorageConfig struct {
	// Backend is one of "file", "bolt", "sqlite" or "memory".
	Backend string `toml:"backend"`
	// DataDir holds the backend files (empty = ~/.parley/data)
	DataDir string `toml:"data_dir"`
	// Watch reloads the store when another process rewrites the file backend.
	Watch bool `toml:"watch"`
}

// RemoteConfig describes the chat completion endpoint.
type RemoteConfig struct {
	// Backend is "ollama" or "openai" (any OpenAI-compatible API).
	Backend string `toml:"backend"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
	// TimeoutSecs bounds a single request.
	TimeoutSecs int `toml:"timeout_secs"`
	// ContextWindow is how many prior messages are sent with each request.
	ContextWindow int `toml:"context_window"`
	// RequestsPerMinute throttles outgoing requests (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme        string `toml:"theme"`
	SidebarWidth int    `toml:"sidebar_width"`
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	Level string `toml:"level"`
	// File overrides <data_dir>/parley.log
	File string `toml:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"

	DefaultOllamaURL     = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.2"
	DefaultOpenAIURL     = "https://openrouter.ai/api/v1"
	DefaultOpenAIModel   = "openai/gpt-4o-mini"
	DefaultTimeoutSecs   = 60
	DefaultContextWindow = 10
	DefaultSidebarWidth  = 28
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "file",
			Watch:   true,
		},
		Remote: RemoteConfig{
			Backend:       BackendOllama,
			BaseURL:       DefaultOllamaURL,
			Model:         DefaultOllamaModel,
			TimeoutSecs:   DefaultTimeoutSecs,
			ContextWindow: DefaultContextWindow,
		},
		UI: UIConfig{
			Theme:        "auto",
			SidebarWidth: DefaultSidebarWidth,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the parley configuration directory path. PARLEY_HOME
// replaces ~/.parley when set.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PARLEY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir resolves the storage directory, defaulting to <config dir>/data.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return expandHome(c.Storage.DataDir)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// LogFile resolves the log file path.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "parley.log"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.parley/config.toml when present and falls back to defaults.
// A .env file in the working directory is loaded first so its variables
// take part in the environment overrides.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path. A missing file
// yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	loadDotEnv()

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
		// The URL and model defaults belong to the default backend.
		if md.IsDefined("remote", "backend") {
			if !md.IsDefined("remote", "base_url") {
				cfg.Remote.BaseURL = ""
			}
			if !md.IsDefined("remote", "model") {
				cfg.Remote.Model = ""
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions since it may hold an
// API key.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# parley configuration file\n")
	buf.WriteString("# Generated by parley - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validStorageBackends = []string{"file", "bolt", "sqlite", "memory"}
	validRemoteBackends  = []string{BackendOllama, BackendOpenAI}
	validThemes          = []string{"auto", "dark", "light"}
	validLogLevels       = []string{"panic", "fatal", "error", "warn", "warning", "info", "debug", "trace"}
)

// Validate validates the configuration and returns any errors as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if !contains(validStorageBackends, c.Storage.Backend) {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("must be one of %s (got %q)", strings.Join(validStorageBackends, ", "), c.Storage.Backend),
		})
	}

	if !contains(validRemoteBackends, c.Remote.Backend) {
		errs = append(errs, ValidationError{
			Field:   "remote.backend",
			Message: fmt.Sprintf("must be one of %s (got %q)", strings.Join(validRemoteBackends, ", "), c.Remote.Backend),
		})
	}
	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "remote.base_url",
				Message: fmt.Sprintf("must be an http(s) URL (got %q)", c.Remote.BaseURL),
			})
		}
	}
	if c.Remote.TimeoutSecs < 1 || c.Remote.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "remote.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 3600 (got %d)", c.Remote.TimeoutSecs),
		})
	}
	if c.Remote.ContextWindow < 1 || c.Remote.ContextWindow > 1000 {
		errs = append(errs, ValidationError{
			Field:   "remote.context_window",
			Message: fmt.Sprintf("must be between 1 and 1000 (got %d)", c.Remote.ContextWindow),
		})
	}
	if c.Remote.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "remote.requests_per_minute",
			Message: "cannot be negative",
		})
	}

	if !contains(validThemes, c.UI.Theme) {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be one of %s (got %q)", strings.Join(validThemes, ", "), c.UI.Theme),
		})
	}
	if c.UI.SidebarWidth < 10 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("must be between 10 and 80 (got %d)", c.UI.SidebarWidth),
		})
	}

	if !contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// SetDefaults fills zero-value fields. Base URL and model follow the remote
// backend, so switching to openai without a URL picks the OpenRouter one.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}

	if c.Remote.Backend == "" {
		c.Remote.Backend = d.Remote.Backend
	}
	c.Remote.Backend = strings.ToLower(c.Remote.Backend)
	if c.Remote.BaseURL == "" {
		if c.Remote.Backend == BackendOpenAI {
			c.Remote.BaseURL = DefaultOpenAIURL
		} else {
			c.Remote.BaseURL = DefaultOllamaURL
		}
	}
	if c.Remote.Model == "" {
		if c.Remote.Backend == BackendOpenAI {
			c.Remote.Model = DefaultOpenAIModel
		} else {
			c.Remote.Model = DefaultOllamaModel
		}
	}
	if c.Remote.TimeoutSecs == 0 {
		c.Remote.TimeoutSecs = d.Remote.TimeoutSecs
	}
	if c.Remote.ContextWindow == 0 {
		c.Remote.ContextWindow = d.Remote.ContextWindow
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PARLEY_DATA_DIR: overrides storage.data_dir
//   - PARLEY_STORAGE: overrides storage.backend
//   - PARLEY_BACKEND: overrides remote.backend
//   - PARLEY_BASE_URL: overrides remote.base_url
//   - PARLEY_MODEL: overrides remote.model
//   - PARLEY_API_KEY: overrides remote.api_key (OPENAI_API_KEY is a fallback)
//   - PARLEY_LOG_LEVEL: overrides log.level
//   - PARLEY_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("PARLEY_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if backend := os.Getenv("PARLEY_STORAGE"); backend != "" {
		c.Storage.Backend = backend
	}

	if backend := os.Getenv("PARLEY_BACKEND"); backend != "" && !strings.EqualFold(backend, c.Remote.Backend) {
		// The URL and model defaults belong to the old backend.
		if c.Remote.BaseURL == DefaultOllamaURL || c.Remote.BaseURL == DefaultOpenAIURL {
			c.Remote.BaseURL = ""
		}
		if c.Remote.Model == DefaultOllamaModel || c.Remote.Model == DefaultOpenAIModel {
			c.Remote.Model = ""
		}
		c.Remote.Backend = backend
	}
	if u := os.Getenv("PARLEY_BASE_URL"); u != "" {
		c.Remote.BaseURL = u
	}
	if model := os.Getenv("PARLEY_MODEL"); model != "" {
		c.Remote.Model = model
	}
	if key := os.Getenv("PARLEY_API_KEY"); key != "" {
		c.Remote.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Remote.APIKey == "" {
		c.Remote.APIKey = key
	}

	if level := os.Getenv("PARLEY_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if theme := os.Getenv("PARLEY_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "remote.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", key, err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type for %s", key)
	}
	return nil
}

// lookup matches each dotted part against the toml tags.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()

	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		idx := -1
		t := v.Type()
		for j := 0; j < t.NumField(); j++ {
			if t.Field(j).Tag.Get("toml") == part {
				idx = j
				break
			}
		}
		if idx < 0 {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = v.Field(idx)
	}
	if v.Kind() == reflect.Struct {
		return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
	}
	return v, nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Remote.APIKey != "" {
		cp.Remote.APIKey = "********"
	}
	return &cp
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	orchestrator "github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/cloud"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ollama"
	"github.com/jeranaias/parley/internal/remote"
	"github.com/jeranaias/parley/internal/storage"
	"github.com/jeranaias/parley/internal/store"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

// loadConfig resolves configuration and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFromPath(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if f.dataDir != "" {
		cfg.Storage.DataDir = f.dataDir
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// APP
// =============================================================================

// App is the state shared by one command invocation.
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Adapter *storage.Adapter
	Store   *store.Store

	logCloser io.Closer
}

// openApp loads config, starts logging, opens storage and loads the store.
// Interactive commands log to the log file because they own the terminal.
func openApp(flags *globalFlags, interactive bool, stderr io.Writer) (*App, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Stderr: stderr}
	if logOpts.File == "" && interactive {
		if logOpts.File, err = cfg.LogFile(); err != nil {
			return nil, err
		}
	}
	if logOpts.File == "" && flags.logLevel == "" && quieterThanWarn(cfg.Log.Level) {
		logOpts.Level = "warn"
	}
	log, closer, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		closer.Close()
		return nil, err
	}
	adapter, err := storage.Open(storage.Options{Backend: cfg.Storage.Backend, Dir: dataDir, Logger: log})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	st := store.New(adapter, store.WithLogger(log))
	st.Load()

	log.WithFields(logrus.Fields{
		"backend":       cfg.Storage.Backend,
		"data_dir":      dataDir,
		"conversations": st.Len(),
	}).Debug("APP_STARTED")

	return &App{Config: cfg, Log: log, Adapter: adapter, Store: st, logCloser: closer}, nil
}

// quieterThanWarn reports whether level would print info or debug lines.
func quieterThanWarn(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info", "debug", "trace":
		return true
	}
	return false
}

// Close releases storage and the log file.
func (a *App) Close() error {
	err := a.Adapter.Close()
	if cerr := a.logCloser.Close(); err == nil {
		err = cerr
	}
	return err
}

// Orchestrator builds the send cycle for the configured remote backend.
func (a *App) Orchestrator(observer orchestrator.Observer) (*orchestrator.Orchestrator, error) {
	completer, err := NewCompleter(a.Config.Remote, a.Log)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(a.Store, completer, orchestrator.Options{
		Window:   a.Config.Remote.ContextWindow,
		Timeout:  time.Duration(a.Config.Remote.TimeoutSecs) * time.Second,
		Observer: observer,
		Logger:   a.Log,
	}), nil
}

// Watch reloads the store when another process rewrites storage. Backends
// without files are skipped.
func (a *App) Watch(ctx context.Context) {
	if !a.Config.Storage.Watch {
		return
	}
	err := a.Adapter.Watch(ctx, storage.DefaultDebounce, func() {
		a.Store.Reload()
		a.Log.WithField("conversations", a.Store.Len()).Info("WATCH_RELOAD")
	})
	switch {
	case errors.Is(err, storage.ErrWatchUnsupported):
		a.Log.WithField("backend", a.Config.Storage.Backend).Debug("WATCH_UNSUPPORTED")
	case err != nil:
		a.Log.WithField("error", err).Warn("WATCH_FAILED")
	}
}

// Resolve finds a conversation by exact id, unique id prefix, or 1-based
// position in the listing that includes archived conversations.
func (a *App) Resolve(ref string) (*model.Conversation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &UsageError{Reason: "a conversation id is required"}
	}
	if conv, ok := a.Store.Find(ref); ok {
		return conv, nil
	}

	all := a.Store.List(true)
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(all) {
		return all[n-1], nil
	}

	var match *model.Conversation
	for _, c := range all {
		if strings.HasPrefix(c.ID, ref) {
			if match != nil {
				return nil, &UsageError{Reason: fmt.Sprintf("conversation id prefix %q is ambiguous", ref)}
			}
			match = c
		}
	}
	if match == nil {
		return nil, &NotFoundError{Ref: ref}
	}
	return match, nil
}

// =============================================================================
// REMOTE BACKENDS
// =============================================================================

// NewCompleter builds the completer for cfg, rate limited when configured.
func NewCompleter(cfg config.RemoteConfig, log logrus.FieldLogger) (remote.Completer, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	var c remote.Completer
	switch cfg.Backend {
	case config.BackendOpenAI:
		client, err := cloud.NewClient(cloud.Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openai backend: %w", err)
		}
		c = client
	case "", config.BackendOllama:
		c = newOllamaClient(cfg)
	default:
		return nil, &UsageError{Reason: fmt.Sprintf("unknown remote backend %q", cfg.Backend)}
	}

	logging.OrDiscard(log).WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"model":   cfg.Model,
		"rpm":     cfg.RequestsPerMinute,
	}).Debug("COMPLETER_READY")
	return remote.RateLimited(c, cfg.RequestsPerMinute), nil
}

func newOllamaClient(cfg config.RemoteConfig) *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.BaseURL,
		Timeout:      time.Duration(cfg.TimeoutSecs) * time.Second,
		DefaultModel: cfg.Model,
	})
}

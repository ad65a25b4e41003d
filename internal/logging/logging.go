// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the logrus logger shared by parley components.
//
// Events are logged with an upper-case event name as the message and the
// details as fields, for example:
//
//	log.WithFields(logrus.Fields{"id": id, "error": err}).Warn("PERSIST_FAILED")
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options selects where and how much to log.
type Options struct {
	// Level is a logrus level name. Empty means "info".
	Level string

	// File is the log file path. Empty logs to Stderr.
	File string

	// Stderr overrides os.Stderr, for tests.
	Stderr io.Writer
}

// New builds a logger from opts. The returned closer releases the log file
// and is never nil.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		DisableColors:   opts.File != "",
	})

	level := logrus.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		parsed, err := logrus.ParseLevel(s)
		if err != nil {
			return nil, nopCloser{}, fmt.Errorf("invalid log level %q: %w", s, err)
		}
		level = parsed
	}
	log.SetLevel(level)

	if opts.File == "" {
		if opts.Stderr != nil {
			log.SetOutput(opts.Stderr)
		} else {
			log.SetOutput(os.Stderr)
		}
		return log, nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
		return nil, nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return log, f, nil
}

// Discard returns a logger that drops everything. Components fall back to it
// when no logger is supplied.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

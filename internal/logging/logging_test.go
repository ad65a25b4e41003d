// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Stderr(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Options{Level: "debug", Stderr: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closer.Close()

	log.WithField("id", "c1").Debug("STORE_LOADED")
	out := buf.String()
	if !strings.Contains(out, "STORE_LOADED") || !strings.Contains(out, "id=c1") {
		t.Errorf("unexpected log output: %q", out)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "parley.log")
	log, closer, err := New(Options{File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Info("HELLO")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "HELLO") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := logrus.New()
	if OrDiscard(l) != logrus.FieldLogger(l) {
		t.Error("OrDiscard should return the given logger")
	}
}

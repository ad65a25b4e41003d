// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Storage keys.
const (
	KeyConversations    = "chat_conversations"
	KeyCurrentID        = "current_conversation_id"
	KeySidebarCollapsed = "sidebar_collapsed"
	KeyTheme            = "theme"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// KV is a string key-value store. Get reports a missing key as ok=false
// with a nil error.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// ErrInvalidKey is returned for keys that cannot be stored safely.
var ErrInvalidKey = errors.New("invalid storage key")

// PersistError describes a failed write of one key.
type PersistError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// openKV builds the backend named by backend rooted at dir.
func openKV(backend, dir string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileKV(dir)
	case BackendBolt:
		return OpenBoltKV(filepath.Join(dir, "parley.bolt"))
	case BackendSQLite:
		return OpenSQLiteKV(filepath.Join(dir, "parley.db"))
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
)

// Options configures Open.
type Options struct {
	// Backend is one of file, bolt, sqlite or memory. Empty means file.
	Backend string

	// Dir is the data directory. Ignored by the memory backend.
	Dir string

	Logger logrus.FieldLogger
}

// Adapter reads and writes parley state through a KV. Each method touches
// exactly one key.
type Adapter struct {
	kv  KV
	log logrus.FieldLogger

	mu        sync.Mutex
	digest    [blake2b.Size256]byte
	hasDigest bool
}

// Open builds the configured backend and wraps it in an Adapter.
func Open(opts Options) (*Adapter, error) {
	kv, err := openKV(opts.Backend, opts.Dir)
	if err != nil {
		return nil, err
	}
	return NewAdapter(kv, opts.Logger), nil
}

// NewAdapter wraps kv. A nil logger discards output.
func NewAdapter(kv KV, log logrus.FieldLogger) *Adapter {
	return &Adapter{kv: kv, log: logging.OrDiscard(log)}
}

// KV returns the underlying store.
func (a *Adapter) KV() KV {
	return a.kv
}

// Close closes the underlying store.
func (a *Adapter) Close() error {
	return a.kv.Close()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Save writes the whole conversation collection. Failures are logged and
// returned as *PersistError; they never panic.
func (a *Adapter) Save(convs []*model.Conversation) error {
	if convs == nil {
		convs = []*model.Conversation{}
	}
	data, err := json.Marshal(convs)
	if err != nil {
		return a.persistFailed("encode", KeyConversations, err)
	}
	if err := a.kv.Set(KeyConversations, string(data)); err != nil {
		return a.persistFailed("write", KeyConversations, err)
	}
	a.remember(data)
	a.log.WithFields(logrus.Fields{"count": len(convs), "bytes": len(data)}).Debug("CONVERSATIONS_SAVED")
	return nil
}

// LoadRaw returns the serialized collection. A missing key and a read
// failure both report ok=false; the failure is logged.
func (a *Adapter) LoadRaw() (string, bool) {
	raw, ok, err := a.kv.Get(KeyConversations)
	if err != nil {
		a.log.WithField("error", err).Warn("CONVERSATIONS_READ_FAILED")
		return "", false
	}
	if ok {
		a.remember([]byte(raw))
	}
	return raw, ok
}

// Changed reports whether raw differs from the last blob this adapter wrote
// or read. Watchers use it to ignore their own writes.
func (a *Adapter) Changed(raw []byte) bool {
	sum := blake2b.Sum256(raw)
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.hasDigest || sum != a.digest
}

func (a *Adapter) remember(raw []byte) {
	sum := blake2b.Sum256(raw)
	a.mu.Lock()
	a.digest, a.hasDigest = sum, true
	a.mu.Unlock()
}

// =============================================================================
// CURRENT POINTER
// =============================================================================

// SaveCurrentID writes the selected conversation id. An empty id clears it.
func (a *Adapter) SaveCurrentID(id string) error {
	var err error
	if id == "" {
		err = a.kv.Delete(KeyCurrentID)
	} else {
		err = a.kv.Set(KeyCurrentID, id)
	}
	if err != nil {
		return a.persistFailed("write", KeyCurrentID, err)
	}
	return nil
}

// LoadCurrentID returns the selected conversation id, if any.
func (a *Adapter) LoadCurrentID() (string, bool) {
	return a.LoadString(KeyCurrentID)
}

// =============================================================================
// VIEW STATE
// =============================================================================

// SaveFlag writes a boolean as "true" or "false".
func (a *Adapter) SaveFlag(key string, value bool) error {
	return a.SaveString(key, strconv.FormatBool(value))
}

// LoadFlag reads a boolean. Missing or unparsable values are false.
func (a *Adapter) LoadFlag(key string) bool {
	raw, ok := a.LoadString(key)
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

// SaveString writes an arbitrary string value.
func (a *Adapter) SaveString(key, value string) error {
	if err := a.kv.Set(key, value); err != nil {
		return a.persistFailed("write", key, err)
	}
	return nil
}

// LoadString reads an arbitrary string value.
func (a *Adapter) LoadString(key string) (string, bool) {
	v, ok, err := a.kv.Get(key)
	if err != nil {
		a.log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("STORAGE_READ_FAILED")
		return "", false
	}
	return v, ok
}

func (a *Adapter) persistFailed(op, key string, err error) error {
	a.log.WithFields(logrus.Fields{"op": op, "key": key, "error": err}).Error("PERSIST_FAILED")
	return &PersistError{Op: op, Key: key, Err: err}
}

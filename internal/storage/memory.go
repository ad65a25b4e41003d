// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"sync"
)

// ErrQuotaExceeded is what MemoryKV returns for a write it was told to fail.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// MemoryKV is an in-process KV. Writes to keys listed in FailWrites return
// ErrQuotaExceeded, which lets tests exercise partial persistence failures.
type MemoryKV struct {
	mu     sync.Mutex
	data   map[string]string
	failOn map[string]bool
	writes map[string]int
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data:   make(map[string]string),
		failOn: make(map[string]bool),
		writes: make(map[string]int),
	}
}

// FailWrites makes subsequent writes to keys fail (or succeed again when
// fail is false).
func (m *MemoryKV) FailWrites(fail bool, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.failOn[k] = fail
	}
}

// Writes returns how many successful writes key has received.
func (m *MemoryKV) Writes(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[key]
}

// Get reads key.
func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set writes key.
func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[key] {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.writes[key]++
	return nil
}

// Delete removes key.
func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[key] {
		return ErrQuotaExceeded
	}
	delete(m.data, key)
	return nil
}

// Close is a no-op.
func (m *MemoryKV) Close() error {
	return nil
}

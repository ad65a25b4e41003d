// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the in-memory conversation collection and the current
// conversation pointer, and is the only writer of persisted chat state.
//
// Every mutation re-sorts the collection by UpdatedAt (most recent first,
// ties keep their existing order), persists through a storage.Adapter and
// then notifies subscribers synchronously. Persistence failures never undo
// a mutation; they are reported as EventPersistFailed.
//
// Methods return clones, so callers can read results without holding any
// lock and cannot mutate store state by accident.
//
// # Usage
//
//	s := store.New(adapter, store.WithLogger(log))
//	s.Load()
//	s.EnsureCurrent()
//	unsubscribe := s.Subscribe(func(ev store.Event) { redraw() })
//	defer unsubscribe()
package store

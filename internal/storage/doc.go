// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists parley state in a local key-value store.
//
// Three keys are written independently, and any one may fail without
// affecting the others:
//
//   - KeyConversations: the JSON array of every conversation
//   - KeyCurrentID: the id of the selected conversation
//   - KeySidebarCollapsed, KeyTheme: cosmetic view state
//
// # Backends
//
//   - file: one file per key under the data directory, written atomically
//   - bolt: a single bbolt database
//   - sqlite: a single-table SQLite database (pure Go driver)
//   - memory: in-process map for tests
//
// # Usage
//
//	adapter, err := storage.Open(storage.Options{Backend: "file", Dir: dataDir})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Close()
//
//	raw, ok := adapter.LoadRaw()
//
// The conversations blob of the file backend can be watched for writes made
// by another parley process; see Adapter.Watch.
package storage

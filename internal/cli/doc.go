// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli wires parley's command tree.
//
// Every command shares one bootstrap: configuration, logging, the storage
// backend, the conversation store and, for commands that talk to a model,
// the orchestrator. Commands return errors; Execute prints them as
// "Error: ..." and maps them to an exit code.
//
// # Commands
//
//   - tui (default): full-screen chat
//   - chat: line-oriented REPL with slash commands
//   - ask: one-shot question into the current conversation
//   - list, show, export, import, rename, archive, delete: conversation management
//   - status: storage summary, endpoint health and installed models
//   - config: show, path, init, get, set
package cli

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea view binder for parley.
//
// The Model draws state it reads from the conversation store and forwards
// user intents to the store and the orchestrator. It never changes
// conversations itself. Store events and orchestrator callbacks reach the
// Update loop through a Bridge, which turns them into tea messages.
//
// # Layout
//
//	+--------------+----------------------------------+
//	| sidebar      | transcript (viewport)            |
//	|              |                                  |
//	|              | typing indicator / toast         |
//	|              | > input                          |
//	+--------------+----------------------------------+
package chat

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the terminal renderings used by the parley
// TUI and REPL.
//
//   - CodeBlock: chroma-highlighted code with a language badge and line numbers
//   - RenderBlocks / RenderMarkdown: lipgloss rendering of render.Block trees
//   - RenderMessage: one transcript entry (label, time, body)
//   - Sidebar: conversation list with active and archived groups
//   - ToastManager: transient notifications
package components

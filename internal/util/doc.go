// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across parley.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - ReadFileIfExists: read a file, reporting absence separately from failure
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateRunesNoEllipsis: UTF-8 safe truncation without ellipsis
//   - TruncateWidth: display-width truncation for terminal columns
//
// # Usage
//
//	// Persist a blob so readers see either the old or the new content
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a title into a sidebar column
//	label := util.TruncateWidth(title, 24)
package util

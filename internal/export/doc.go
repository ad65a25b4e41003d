// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to files and reads them back.
//
// # Supported Formats
//
//   - JSON: the exact persisted record, accepted by ImportFile
//   - Markdown: human-readable with front matter
//   - HTML: standalone page, message bodies rendered by the render package
//
// # Usage
//
//	path, err := export.ExportToFile(st, id, ".", export.NewJSONExporter(nil))
//	conv, err := export.ImportFile(st, path)
package export

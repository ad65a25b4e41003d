// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the persisted record, pretty printed with two-space
// indentation. Options do not apply.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter. opts is accepted for
// symmetry with the other constructors.
func NewJSONExporter(_ *Options) *JSONExporter {
	return &JSONExporter{}
}

// Export converts a conversation to JSON format.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, errNilConversation
	}
	return json.MarshalIndent(conv, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

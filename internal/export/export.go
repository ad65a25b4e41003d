// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/store"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *model.Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrUnknownFormat is returned by ForFormat.
var ErrUnknownFormat = errors.New("unsupported export format")

// errNilConversation is shared by the exporters.
var errNilConversation = errors.New("conversation is nil")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures the human-readable exporters. JSON ignores them.
type Options struct {
	// IncludeMetadata includes the front matter / header block.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	Theme string

	// Now stamps the footer. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
		Now:               time.Now,
	}
}

func withDefaults(opts *Options) *Options {
	if opts == nil {
		return DefaultOptions()
	}
	cp := *opts
	if cp.Now == nil {
		cp.Now = time.Now
	}
	if cp.Theme != "light" {
		cp.Theme = "dark"
	}
	return &cp
}

// ForFormat returns the exporter for json, markdown (md) or html (htm).
func ForFormat(name string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return NewJSONExporter(opts), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// =============================================================================
// FILE OPERATIONS
// =============================================================================

// fileName is conversation-<id><ext> with the id made path safe.
func fileName(conv *model.Conversation, ext string) string {
	return "conversation-" + sanitizeFilename(conv.ID) + ext
}

// ExportToFile writes conversation id from st into dir and returns the path.
func ExportToFile(st *store.Store, id, dir string, exporter Exporter) (string, error) {
	conv, ok := st.Find(id)
	if !ok {
		return "", fmt.Errorf("export %s: %w", id, store.ErrConversationNotFound)
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, fileName(conv, exporter.FileExtension()))
	if err := util.AtomicWriteFile(outputPath, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// ImportFile reads an exported JSON record and adds it to st.
func ImportFile(st *store.Store, path string) (*model.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return st.ImportRecord(data)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunesNoEllipsis(s, 64)

	var sb strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			sb.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			sb.WriteRune('_')
		case r < 32 || r == 127:
			sb.WriteRune('-')
		default:
			sb.WriteRune(r)
		}
	}

	if sb.Len() == 0 {
		return "untitled"
	}
	return sb.String()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// roleLabel is shared by the Markdown and HTML exporters.
func roleLabel(msg model.Message) string {
	if msg.IsError {
		return "Error"
	}
	return msg.Role.DisplayName()
}

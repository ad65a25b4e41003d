// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	return &MarkdownExporter{options: withDefaults(opts)}
}

// Export converts a conversation to Markdown. Message contents are already
// Markdown and are written as-is.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, errNilConversation
	}

	var sb strings.Builder
	title := conv.DisplayTitle()

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
		fmt.Fprintf(&sb, "id: %s\n", escapeYAML(conv.ID))
		fmt.Fprintf(&sb, "date: %s\n", conv.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "updated: %s\n", conv.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(conv.Messages))
		if conv.IsArchived {
			sb.WriteString("archived: true\n")
		}
		sb.WriteString("generator: parley\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	if len(conv.Messages) == 0 {
		sb.WriteString("*No messages yet*\n")
	}

	for i, msg := range conv.Messages {
		label := roleLabel(msg)
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		content := strings.TrimSpace(msg.Content)
		if msg.IsError {
			content = "> " + strings.ReplaceAll(content, "\n", "\n> ")
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")

		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n---\n\n*Exported from parley on %s*\n",
		e.options.Now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text and
// folds line breaks so a heading stays on one line.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"\r\n", " ",
		"\r", " ",
		"\n", " ",
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	)
	return r.Replace(s)
}

// escapeYAML quotes s when it contains characters YAML would interpret.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}

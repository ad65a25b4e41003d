// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley/internal/render"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// BLOCK RENDERING
// =============================================================================

// RenderOptions tunes RenderBlocks.
type RenderOptions struct {
	Width int
	// Plain turns off code highlighting.
	Plain bool
}

// RenderMarkdown parses content and renders it for the terminal.
func RenderMarkdown(content string, theme *styles.Theme, opts RenderOptions) string {
	return RenderBlocks(render.Parse(content), theme, opts)
}

// RenderBlocks renders the block tree with lipgloss. Text reaches the
// terminal as-is; no block can produce markup of its own.
func RenderBlocks(blocks []render.Block, theme *styles.Theme, opts RenderOptions) string {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	wrap := lipgloss.NewStyle().Width(width)

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b := b.(type) {
		case render.Heading:
			parts = append(parts, theme.Heading.Width(width).Render(renderSpans(b.Spans, theme)))
		case render.Paragraph:
			parts = append(parts, wrap.Render(renderSpans(b.Spans, theme)))
		case render.Blockquote:
			parts = append(parts, theme.Quote.Width(width-2).Render(renderSpans(b.Spans, theme)))
		case render.List:
			parts = append(parts, renderList(b, theme, width))
		case render.Rule:
			ruleWidth := width
			if ruleWidth > 40 {
				ruleWidth = 40
			}
			parts = append(parts, theme.Rule.Render(strings.Repeat("─", ruleWidth)))
		case render.Preformatted:
			parts = append(parts, b.Text)
		case render.CodeBlock:
			cb := NewCodeBlock(b.Language, b.Code)
			cb.MaxWidth = width
			cb.Plain = opts.Plain
			parts = append(parts, cb.Render(theme))
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderList(l render.List, theme *styles.Theme, width int) string {
	lines := make([]string, 0, len(l.Items))
	for i, item := range l.Items {
		marker := "•"
		if l.Ordered {
			marker = strconv.Itoa(l.Start+i) + "."
		}
		prefix := theme.Bullet.Render(marker) + " "
		body := lipgloss.NewStyle().Width(width - lipgloss.Width(prefix)).Render(renderSpans(item, theme))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, prefix, body))
	}
	return strings.Join(lines, "\n")
}

// renderSpans styles inline content. Links show their URL after the text.
func renderSpans(spans []render.Span, theme *styles.Theme) string {
	var sb strings.Builder
	for _, sp := range spans {
		switch sp.Kind {
		case render.SpanText:
			sb.WriteString(sp.Text)
		case render.SpanCode:
			sb.WriteString(theme.InlineCode.Render(sp.Text))
		case render.SpanStrong:
			sb.WriteString(lipgloss.NewStyle().Bold(true).Render(renderSpans(sp.Children, theme)))
		case render.SpanEm:
			sb.WriteString(lipgloss.NewStyle().Italic(true).Render(renderSpans(sp.Children, theme)))
		case render.SpanStrike:
			sb.WriteString(lipgloss.NewStyle().Strikethrough(true).Render(renderSpans(sp.Children, theme)))
		case render.SpanLink:
			sb.WriteString(theme.Link.Render(renderSpans(sp.Children, theme)))
			sb.WriteString(" (" + sp.URL + ")")
		case render.SpanBreak:
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

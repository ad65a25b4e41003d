// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/render"
	"github.com/jeranaias/parley/internal/ui/components"
	"github.com/jeranaias/parley/internal/ui/styles"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// printer renders message content for one output stream. Styling is only
// applied when the stream is a terminal, so piped output stays plain.
type printer struct {
	w     io.Writer
	tty   bool
	width int
	theme *styles.Theme
}

func newPrinter(w io.Writer, themeMode string) *printer {
	p := &printer{w: w, tty: isTerminal(w), width: terminalWidth(w)}
	if p.tty {
		p.theme = styles.NewTheme(themeMode)
	}
	return p
}

// content renders markdown content.
func (p *printer) content(s string) string {
	if !p.tty {
		return render.PlainText(render.Parse(s))
	}
	return components.RenderMarkdown(s, p.theme, components.RenderOptions{Width: p.width})
}

// message prints one message with its role heading.
func (p *printer) message(msg model.Message) {
	label := msg.Role.DisplayName()
	if msg.IsError {
		label = "Error"
	}
	stamp := ""
	if !msg.Timestamp.IsZero() {
		stamp = " · " + msg.Timestamp.Local().Format("15:04")
	}
	if p.tty {
		fmt.Fprintln(p.w, components.RenderMessage(msg, p.theme, components.RenderOptions{Width: p.width}))
		return
	}
	fmt.Fprintf(p.w, "%s%s\n%s\n", label, stamp, p.content(msg.Content))
}

// transcript prints every message of conv separated by blank lines.
func (p *printer) transcript(conv *model.Conversation) {
	if conv == nil || len(conv.Messages) == 0 {
		fmt.Fprintln(p.w, components.EmptyTranscript)
		return
	}
	for i, msg := range conv.Messages {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.message(msg)
	}
}

// =============================================================================
// LISTINGS
// =============================================================================

const listTitleWidth = 40

// printList writes one numbered line per conversation. The numbers are the
// positions Resolve accepts.
func printList(w io.Writer, convs []*model.Conversation, currentID string, now time.Time) {
	if len(convs) == 0 {
		fmt.Fprintln(w, components.NoConversations)
		return
	}
	for i, c := range convs {
		marker := " "
		if c.ID == currentID {
			marker = "*"
		}
		flags := ""
		if c.IsArchived {
			flags = " [archived]"
		}
		fmt.Fprintf(w, "%s %2d. %-8s  %-*s  %d msgs, %s%s\n",
			marker, i+1, shortID(c.ID),
			listTitleWidth, util.TruncateWidth(c.DisplayTitle(), listTitleWidth),
			c.MessageCount(), relativeTime(c.UpdatedAt, now), flags)
	}
}

func shortID(id string) string {
	return util.TruncateRunesNoEllipsis(id, 8)
}

// relativeTime formats t relative to now.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// =============================================================================
// GLAMOUR PREVIEW
// =============================================================================

// glamourPreview renders the markdown export of conv through glamour. The
// front matter is left out because glamour shows it as a rule and a
// paragraph.
func glamourPreview(conv *model.Conversation, width int) (string, error) {
	exporter, err := export.ForFormat("markdown", &export.Options{IncludeTimestamps: true})
	if err != nil {
		return "", err
	}
	data, err := exporter.Export(conv)
	if err != nil {
		return "", err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(string(data))
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

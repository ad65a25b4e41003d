// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/styles"
	"github.com/jeranaias/parley/internal/util"
)

// Sidebar placeholders.
const (
	NoConversations    = "No conversations yet"
	NoMatches          = "No matching conversations"
	NoMessagesPreview  = "No messages yet"
	archivedHeading    = "Archived"
	conversationsTitle = "Conversations"
)

// Sidebar renders the conversation list. Conversations arrive in
// display order; active ones are listed first and archived ones follow
// under their own heading.
type Sidebar struct {
	Width int

	// Searching switches the empty-state text.
	Searching bool
}

// NewSidebar creates a sidebar of the given width.
func NewSidebar(width int) Sidebar {
	return Sidebar{Width: width}
}

// Render draws convs with currentID highlighted.
func (s Sidebar) Render(convs []*model.Conversation, currentID string, theme *styles.Theme) string {
	inner := s.Width - 2
	if inner < 8 {
		inner = 8
	}

	lines := []string{theme.SidebarHeading.Render(conversationsTitle), ""}

	if len(convs) == 0 {
		empty := NoConversations
		if s.Searching {
			empty = NoMatches
		}
		lines = append(lines, theme.Empty.Render(util.TruncateWidth(empty, inner)))
		return theme.Sidebar.Width(s.Width).Render(strings.Join(lines, "\n"))
	}

	var archived []*model.Conversation
	for _, c := range convs {
		if c.IsArchived {
			archived = append(archived, c)
			continue
		}
		lines = append(lines, s.item(c, c.ID == currentID, inner, theme)...)
	}

	if len(archived) > 0 {
		lines = append(lines, "", theme.SidebarHeading.Render(archivedHeading))
		for _, c := range archived {
			lines = append(lines, s.item(c, c.ID == currentID, inner, theme)...)
		}
	}

	return theme.Sidebar.Width(s.Width).Render(strings.Join(lines, "\n"))
}

func (s Sidebar) item(c *model.Conversation, selected bool, width int, theme *styles.Theme) []string {
	title := util.TruncateWidth(c.DisplayTitle(), width)
	preview := c.Preview(60)
	if preview == "" {
		preview = NoMessagesPreview
	}
	preview = util.TruncateWidth(preview, width)

	titleStyle := theme.SidebarItem
	switch {
	case selected:
		titleStyle = theme.SidebarSelected
	case c.IsArchived:
		titleStyle = theme.SidebarArchived
	}
	return []string{titleStyle.Render(title), theme.SidebarPreview.Render(preview)}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley/internal/ui/components"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.statusLine(),
		m.input.View(),
	)

	body := main
	if m.showSidebar() {
		sidebar := components.NewSidebar(m.sidebarWidth)
		sidebar.Searching = m.searchTerm != ""
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			sidebar.Render(m.visible(), m.store.CurrentID(), m.theme),
			" ",
			main,
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.theme.Divider.Render(strings.Repeat("─", max(m.width, 1))),
		body,
		m.footer(),
	)
}

func (m Model) header() string {
	title := "parley"
	if conv, ok := m.store.Current(); ok {
		title += " · " + conv.DisplayTitle()
		if conv.IsArchived {
			title += " (archived)"
		}
	}
	return m.theme.Header.Render(m.theme.HeaderTitle.Render(util.TruncateWidth(title, max(m.width-2, 1))))
}

// statusLine shows the typing indicator, a toast or the mode hint, in that
// order of precedence.
func (m Model) statusLine() string {
	if m.typingID != "" && m.typingID == m.store.CurrentID() {
		return m.spinner.View() + m.theme.Typing.Render(" Assistant is typing...")
	}
	if toast := m.toasts.View(m.theme); toast != "" {
		return toast
	}
	switch m.mode {
	case ModeSearch:
		return m.theme.Timestamp.Render("Search: Enter to select, Esc to clear")
	case ModeRename:
		return m.theme.Timestamp.Render("Rename: Enter to save, Esc to cancel")
	case ModeImport:
		return m.theme.Timestamp.Render("Import: Enter to load, Esc to cancel")
	}
	return ""
}

func (m Model) footer() string {
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return m.theme.Footer.MaxWidth(max(m.width, 1)).Render(strings.Join(parts, "  "))
}

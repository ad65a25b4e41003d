// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	orchestrator "github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/render"
	"github.com/jeranaias/parley/internal/storage"
	"github.com/jeranaias/parley/internal/store"
	"github.com/jeranaias/parley/internal/ui/components"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		m.refresh()
		return m, nil

	case StoreEventMsg:
		if msg.Event.Kind == store.EventPersistFailed {
			m.notify(components.ToastKindError, msgPersistFailed)
		}
		m.refresh()
		return m, m.bridge.Wait()

	case TypingMsg:
		var cmd tea.Cmd
		if msg.Active {
			m.typingID = msg.ConversationID
			cmd = m.spinner.Tick
		} else if m.typingID == msg.ConversationID {
			m.typingID = ""
		}
		m.refresh()
		return m, tea.Batch(cmd, m.bridge.Wait())

	case NotifyMsg:
		m.notify(toastKind(msg.Level), msg.Message)
		return m, m.bridge.Wait()

	case SendDoneMsg:
		return m.handleSendDone(msg), nil

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		if m.typingID == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func toastKind(level orchestrator.Level) components.ToastKind {
	switch level {
	case orchestrator.LevelError:
		return components.ToastKindError
	case orchestrator.LevelSuccess:
		return components.ToastKindSuccess
	default:
		return components.ToastKindInfo
	}
}

func (m Model) handleSendDone(msg SendDoneMsg) Model {
	switch {
	case errors.Is(msg.Err, orchestrator.ErrBusy):
		m.notify(components.ToastKindInfo, msgWaitForReply)
	case errors.Is(msg.Err, orchestrator.ErrEmptyInput):
	case msg.Err != nil:
		m.log.WithFields(logrus.Fields{"error": msg.Err}).Warn("SEND_REJECTED")
		m.notify(components.ToastKindError, msg.Err.Error())
	}
	// The bridge drops messages when full, so a lost TypingStopped must not
	// leave the indicator running once no cycle is in flight.
	if m.typingID != "" && (m.orch == nil || !m.orch.IsSending()) {
		m.typingID = ""
	}
	m.refresh()
	return m
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, m.close()
	}
	if m.mode != ModeChat {
		return m.handlePromptKey(msg)
	}

	// Any key other than a second ctrl+d abandons a pending delete.
	if !key.Matches(msg, m.keys.Delete) {
		m.pendingDelete = ""
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		return m.send()
	case key.Matches(msg, m.keys.New):
		m.store.Create()
		m.refresh()
	case key.Matches(msg, m.keys.Archive):
		m.toggleArchive()
	case key.Matches(msg, m.keys.Delete):
		m.deleteCurrent()
	case key.Matches(msg, m.keys.Export):
		m.exportCurrent()
	case key.Matches(msg, m.keys.Import):
		m.enterMode(ModeImport, importPlaceholder, "")
	case key.Matches(msg, m.keys.Rename):
		if conv, ok := m.store.Current(); ok {
			m.enterMode(ModeRename, renamePlaceholder, conv.Title)
		}
	case key.Matches(msg, m.keys.Search):
		m.enterMode(ModeSearch, searchPlaceholder, m.searchTerm)
	case key.Matches(msg, m.keys.Copy):
		m.copyLastCode()
	case key.Matches(msg, m.keys.ToggleSidebar):
		m.toggleSidebar()
	case key.Matches(msg, m.keys.ToggleTheme):
		m.toggleTheme()
	case key.Matches(msg, m.keys.Next):
		m.cycle(1)
	case key.Matches(msg, m.keys.Prev):
		m.cycle(-1)
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
	case key.Matches(msg, m.keys.Cancel):
		m.input.Reset()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handlePromptKey edits the search, rename or import line.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.mode == ModeSearch {
			m.searchTerm = ""
		}
		m.leaveMode()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		value := strings.TrimSpace(m.input.Value())
		switch m.mode {
		case ModeSearch:
			m.searchTerm = value
			if convs := m.visible(); len(convs) > 0 {
				m.store.SetCurrent(convs[0].ID)
			}
		case ModeRename:
			m.rename(value)
		case ModeImport:
			m.importFile(value)
		}
		m.leaveMode()
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == ModeSearch {
		m.searchTerm = m.input.Value()
	}
	return m, cmd
}

func (m *Model) enterMode(mode Mode, placeholder, value string) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
}

func (m *Model) leaveMode() {
	m.mode = ModeChat
	m.input.Placeholder = chatPlaceholder
	m.input.Reset()
}

// =============================================================================
// ACTIONS
// =============================================================================

// send starts a cycle for the current conversation, creating one first if
// there is none. The orchestrator blocks, so it runs inside the command.
func (m Model) send() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.orch.IsSending() {
		m.notify(components.ToastKindInfo, msgWaitForReply)
		return m, nil
	}
	id := m.store.EnsureCurrent()
	m.input.Reset()

	orch, ctx := m.orch, m.ctx
	return m, func() tea.Msg {
		res, err := orch.Send(ctx, id, text)
		return SendDoneMsg{Result: res, Err: err}
	}
}

func (m *Model) toggleArchive() {
	id := m.store.CurrentID()
	if id == "" {
		return
	}
	archived, err := m.store.ToggleArchive(id)
	if err != nil {
		m.notify(components.ToastKindError, err.Error())
		return
	}
	if archived {
		m.notify(components.ToastKindSuccess, msgArchived)
	} else {
		m.notify(components.ToastKindSuccess, msgUnarchived)
	}
}

// deleteCurrent asks for confirmation on the first press and deletes on the
// second.
func (m *Model) deleteCurrent() {
	id := m.store.CurrentID()
	if id == "" {
		return
	}
	if m.pendingDelete != id {
		m.pendingDelete = id
		m.notify(components.ToastKindInfo, msgConfirmDelete)
		return
	}
	m.pendingDelete = ""
	if _, err := m.store.Delete(id); err != nil {
		m.notify(components.ToastKindError, err.Error())
		return
	}
	m.notify(components.ToastKindSuccess, msgDeleted)
	m.refresh()
}

func (m *Model) exportCurrent() {
	id := m.store.CurrentID()
	if id == "" {
		m.notify(components.ToastKindError, msgNoConversation)
		return
	}
	exporter, err := export.ForFormat("json", nil)
	if err == nil {
		var path string
		path, err = export.ExportToFile(m.store, id, m.exportDir, exporter)
		if err == nil {
			m.notify(components.ToastKindSuccess, "Exported to "+path)
			return
		}
	}
	m.log.WithFields(logrus.Fields{"id": id, "error": err}).Warn("EXPORT_FAILED")
	m.notify(components.ToastKindError, msgExportFailed)
}

func (m *Model) importFile(path string) {
	if path == "" {
		return
	}
	if _, err := export.ImportFile(m.store, path); err != nil {
		m.log.WithFields(logrus.Fields{"path": path, "error": err}).Warn("IMPORT_FAILED")
		m.notify(components.ToastKindError, msgImportFailed)
		return
	}
	m.notify(components.ToastKindSuccess, msgImported)
}

func (m *Model) rename(title string) {
	id := m.store.CurrentID()
	if id == "" || title == "" {
		return
	}
	if err := m.store.Rename(id, title); err != nil {
		m.notify(components.ToastKindError, msgRenameFailed)
	}
}

// copyLastCode copies the most recent code block of the current
// conversation.
func (m *Model) copyLastCode() {
	conv, ok := m.store.Current()
	if !ok {
		m.notify(components.ToastKindInfo, msgNoCode)
		return
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		blocks := render.CodeBlocks(render.Parse(conv.Messages[i].Content))
		if len(blocks) == 0 {
			continue
		}
		if err := m.copy(blocks[len(blocks)-1].Code); err != nil {
			m.log.WithFields(logrus.Fields{"error": err}).Warn("CLIPBOARD_FAILED")
			m.notify(components.ToastKindError, msgCopyFailed)
			return
		}
		m.notify(components.ToastKindSuccess, msgCopied)
		return
	}
	m.notify(components.ToastKindInfo, msgNoCode)
}

func (m *Model) toggleSidebar() {
	m.sidebarCollapsed = !m.sidebarCollapsed
	if m.adapter != nil {
		// A failed write is already logged by the adapter; the toggle still applies.
		_ = m.adapter.SaveFlag(storage.KeySidebarCollapsed, m.sidebarCollapsed)
	}
	m.layout()
	m.refresh()
}

func (m *Model) toggleTheme() {
	mode := styles.ModeDark
	if m.theme.IsDark {
		mode = styles.ModeLight
	}
	m.theme = styles.NewTheme(mode)
	m.spinner.Style = m.theme.Typing
	m.input.PromptStyle = m.theme.InputPrompt
	if m.adapter != nil {
		_ = m.adapter.SaveString(storage.KeyTheme, mode)
	}
	m.layout()
	m.refresh()
}

// cycle moves the selection by delta through the sidebar order, wrapping.
func (m *Model) cycle(delta int) {
	convs := m.visible()
	if len(convs) == 0 {
		return
	}
	current := m.store.CurrentID()
	idx := -1
	for i, c := range convs {
		if c.ID == current {
			idx = i
			break
		}
	}
	next := 0
	if idx >= 0 {
		next = (idx + delta + len(convs)) % len(convs)
	}
	m.store.SetCurrent(convs[next].ID)
	m.refresh()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	orchestrator "github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/storage"
	"github.com/jeranaias/parley/internal/store"
	"github.com/jeranaias/parley/internal/ui/components"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// MODE
// =============================================================================

// Mode is what the input line is currently editing.
type Mode int

const (
	ModeChat Mode = iota
	ModeSearch
	ModeRename
	ModeImport
)

// User-facing notifications.
const (
	msgPersistFailed   = "Could not save conversations."
	msgArchived        = "Conversation archived."
	msgUnarchived      = "Conversation unarchived."
	msgDeleted         = "Conversation deleted."
	msgConfirmDelete   = "Press ctrl+d again to permanently delete this conversation."
	msgNoConversation  = "No active conversation to export."
	msgExportFailed    = "Export failed."
	msgImported        = "Conversation imported successfully!"
	msgImportFailed    = "Failed to import file."
	msgCopied          = "Copied to clipboard."
	msgNoCode          = "No code block to copy."
	msgCopyFailed      = "Clipboard is not available."
	msgWaitForReply    = "Please wait for the current reply."
	msgRenameFailed    = "Could not rename conversation."
	chatPlaceholder    = "Type a message..."
	searchPlaceholder  = "Search conversations..."
	renamePlaceholder  = "New title"
	importPlaceholder  = "Path to a conversation JSON file"
	defaultInputLimit  = 8000
	minTranscriptWidth = 20
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps are the collaborators a Model drives. Store, Orchestrator and Bridge
// are required.
type Deps struct {
	Store        *store.Store
	Adapter      *storage.Adapter
	Orchestrator *orchestrator.Orchestrator
	Bridge       *Bridge
	Theme        *styles.Theme
	SidebarWidth int
	ExportDir    string
	Logger       logrus.FieldLogger

	// Copy writes text to the clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
	// Now is the toast clock.
	Now func() time.Time
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	store   *store.Store
	adapter *storage.Adapter
	orch    *orchestrator.Orchestrator
	bridge  *Bridge
	theme   *styles.Theme
	log     logrus.FieldLogger
	copy    func(string) error

	exportDir    string
	sidebarWidth int

	keys     KeyMap
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	toasts   *components.ToastManager

	mode             Mode
	searchTerm       string
	sidebarCollapsed bool
	typingID         string
	pendingDelete    string

	ctx    context.Context
	cancel context.CancelFunc

	width    int
	height   int
	ready    bool
	quitting bool
}

// New builds a Model. The store should already be loaded.
func New(deps Deps) Model {
	theme := deps.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	copyFn := deps.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	width := deps.SidebarWidth
	if width <= 0 {
		width = 28
	}

	ti := textinput.New()
	ti.Placeholder = chatPlaceholder
	ti.CharLimit = defaultInputLimit
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Typing

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		store:        deps.Store,
		adapter:      deps.Adapter,
		orch:         deps.Orchestrator,
		bridge:       deps.Bridge,
		theme:        theme,
		log:          logging.OrDiscard(deps.Logger),
		copy:         copyFn,
		exportDir:    deps.ExportDir,
		sidebarWidth: width,
		keys:         DefaultKeyMap(),
		input:        ti,
		viewport:     viewport.New(80, 20),
		spinner:      sp,
		toasts:       components.NewToastManager(now),
		ctx:          ctx,
		cancel:       cancel,
	}
	if deps.Adapter != nil {
		m.sidebarCollapsed = deps.Adapter.LoadFlag(storage.KeySidebarCollapsed)
	}
	m.input.PromptStyle = theme.InputPrompt
	m.refresh()
	return m
}

// Init starts the bridge listener, the cursor blink and the toast clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.bridge.Wait(),
		components.ToastTickCmd(),
	)
}

// Mode returns the current input mode.
func (m Model) Mode() Mode {
	return m.mode
}

// SidebarCollapsed reports whether the sidebar is hidden.
func (m Model) SidebarCollapsed() bool {
	return m.sidebarCollapsed
}

// Typing reports whether a reply is being awaited.
func (m Model) Typing() bool {
	return m.typingID != ""
}

// Theme returns the active theme.
func (m Model) Theme() *styles.Theme {
	return m.theme
}

// Toasts returns the visible notifications, newest first.
func (m Model) Toasts() []components.Toast {
	return m.toasts.Toasts()
}

// visible returns the conversations in sidebar order.
func (m Model) visible() []*model.Conversation {
	return m.store.Search(m.searchTerm, true)
}

// showSidebar reports whether the layout has room for the sidebar.
func (m Model) showSidebar() bool {
	return !m.sidebarCollapsed && m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// layout sizes the viewport and input for the current window.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.theme.SetSize(m.width, m.height)

	w := m.width
	if m.showSidebar() {
		w -= m.sidebarWidth + 1
	}
	if w < minTranscriptWidth {
		w = minTranscriptWidth
	}
	// header, divider, status line, input, footer
	h := m.height - 5
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 4
}

// refresh re-renders the transcript from the store.
func (m *Model) refresh() {
	conv, _ := m.store.Current()
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(components.RenderTranscript(conv, m.theme, components.RenderOptions{
		Width: m.viewport.Width,
	}))
	if atBottom || m.typingID != "" {
		m.viewport.GotoBottom()
	}
}

func (m *Model) notify(kind components.ToastKind, msg string) {
	m.toasts.Add(kind, msg)
}

// close stops in-flight work before quitting.
func (m *Model) close() tea.Cmd {
	m.quitting = true
	m.cancel()
	return tea.Quit
}

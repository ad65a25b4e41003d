// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	orchestrator "github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/remote"
	"github.com/jeranaias/parley/internal/storage"
	"github.com/jeranaias/parley/internal/store"
	"github.com/jeranaias/parley/internal/ui/components"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// FIXTURES
// =============================================================================

type harness struct {
	kv      *storage.MemoryKV
	adapter *storage.Adapter
	store   *store.Store
	bridge  *Bridge
	copied  []string
	dir     string
}

func newHarness(t *testing.T, completer remote.Completer) (*harness, Model) {
	t.Helper()
	h := &harness{kv: storage.NewMemoryKV(), bridge: NewBridge(), dir: t.TempDir()}
	h.adapter = storage.NewAdapter(h.kv, nil)
	h.store = store.New(h.adapter)
	h.store.Load()
	h.bridge.Attach(h.store)

	if completer == nil {
		completer = remote.CompleterFunc(func(ctx context.Context, turns []remote.Turn) (*remote.Reply, error) {
			return remote.NewReply("Hello back"), nil
		})
	}
	orch := orchestrator.New(h.store, completer, orchestrator.Options{Observer: h.bridge})

	m := New(Deps{
		Store:        h.store,
		Adapter:      h.adapter,
		Orchestrator: orch,
		Bridge:       h.bridge,
		Theme:        styles.NewTheme(styles.ModeDark),
		ExportDir:    h.dir,
		Copy: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return h, m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return out
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func lastToast(t *testing.T, m Model) components.Toast {
	t.Helper()
	toasts := m.Toasts()
	if len(toasts) == 0 {
		t.Fatal("no toast shown")
	}
	return toasts[0]
}

func wantToast(t *testing.T, m Model, want string) {
	t.Helper()
	if got := lastToast(t, m).Message; got != want {
		t.Errorf("toast = %q, want %q", got, want)
	}
}

func sendNow(t *testing.T, m Model, text string) (Model, SendDoneMsg) {
	t.Helper()
	m = typeText(t, m, text)
	m, cmd := press(t, m, tea.KeyEnter)
	if cmd == nil {
		t.Fatal("enter produced no send command")
	}
	done, ok := cmd().(SendDoneMsg)
	if !ok {
		t.Fatal("send command did not produce SendDoneMsg")
	}
	return m, done
}

// =============================================================================
// SEND
// =============================================================================

func TestModel_SendRecordsExchange(t *testing.T) {
	h, m := newHarness(t, nil)

	m, done := sendNow(t, m, "Hi there")
	if v := m.input.Value(); v != "" {
		t.Errorf("input not cleared: %q", v)
	}
	if done.Err != nil {
		t.Fatalf("send rejected: %v", done.Err)
	}
	if done.Result == nil || done.Result.Reply.Content != "Hello back" {
		t.Fatalf("Result = %+v", done.Result)
	}

	conv, ok := h.store.Current()
	if !ok {
		t.Fatal("no current conversation")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(conv.Messages))
	}
	if first := conv.Messages[0]; first.Role != model.RoleUser || first.Content != "Hi there" {
		t.Errorf("first message = %+v", first)
	}
	if conv.Title != "Hi there" {
		t.Errorf("Title = %q", conv.Title)
	}

	m = update(t, m, done)
	if !strings.Contains(m.viewport.View(), "Hello back") {
		t.Errorf("reply not shown:\n%s", m.viewport.View())
	}
}

func TestModel_BlankSendIgnored(t *testing.T) {
	h, m := newHarness(t, nil)

	m = typeText(t, m, "   ")
	if _, cmd := press(t, m, tea.KeyEnter); cmd != nil {
		t.Error("blank input produced a send command")
	}
	if n := h.store.Len(); n != 0 {
		t.Errorf("store has %d conversations, want 0", n)
	}
}

func TestModel_FailureShowsErrorToast(t *testing.T) {
	_, m := newHarness(t, remote.CompleterFunc(func(ctx context.Context, turns []remote.Turn) (*remote.Reply, error) {
		return nil, errors.New("connection refused")
	}))

	m, done := sendNow(t, m, "hello")
	if done.Result == nil || !done.Result.Reply.IsError {
		t.Fatalf("Result = %+v, want error turn", done.Result)
	}

	m = update(t, m, NotifyMsg{Level: orchestrator.LevelError, Message: "connection refused"})
	toast := lastToast(t, m)
	if toast.Kind != components.ToastKindError || toast.Message != "connection refused" {
		t.Errorf("toast = %+v", toast)
	}
}

func TestModel_TypingIndicator(t *testing.T) {
	h, m := newHarness(t, nil)
	id := h.store.Create().ID

	m = update(t, m, TypingMsg{ConversationID: id, Active: true})
	if !m.Typing() || !strings.Contains(m.View(), "Assistant is typing...") {
		t.Error("typing indicator not shown")
	}

	m = update(t, m, TypingMsg{ConversationID: id, Active: false})
	if m.Typing() || strings.Contains(m.View(), "Assistant is typing...") {
		t.Error("typing indicator still shown")
	}
}

func TestModel_SendDoneClearsStaleTyping(t *testing.T) {
	h, m := newHarness(t, nil)
	id := h.store.Create().ID

	m, done := sendNow(t, m, "hello")
	m = update(t, m, TypingMsg{ConversationID: id, Active: true})

	// The matching TypingMsg{Active: false} never arrives.
	m = update(t, m, done)
	if m.Typing() {
		t.Error("typing indicator outlived the send cycle")
	}
}

// =============================================================================
// CONVERSATION ACTIONS
// =============================================================================

func TestModel_NewAndCycle(t *testing.T) {
	h, m := newHarness(t, nil)

	m, _ = press(t, m, tea.KeyCtrlN)
	first := h.store.CurrentID()
	m, _ = press(t, m, tea.KeyCtrlN)
	second := h.store.CurrentID()
	if first == second {
		t.Fatal("ctrl+n did not select a new conversation")
	}
	if n := h.store.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}

	m, _ = press(t, m, tea.KeyTab)
	if got := h.store.CurrentID(); got != first {
		t.Errorf("tab selected %q, want %q", got, first)
	}
	m, _ = press(t, m, tea.KeyTab)
	if got := h.store.CurrentID(); got != second {
		t.Errorf("cycling should wrap around: got %q, want %q", got, second)
	}
	_, _ = press(t, m, tea.KeyShiftTab)
	if got := h.store.CurrentID(); got != first {
		t.Errorf("shift+tab selected %q, want %q", got, first)
	}
}

func TestModel_DeleteNeedsConfirmation(t *testing.T) {
	h, m := newHarness(t, nil)
	h.store.Create()

	m, _ = press(t, m, tea.KeyCtrlD)
	if n := h.store.Len(); n != 1 {
		t.Fatalf("first ctrl+d deleted: Len = %d", n)
	}
	wantToast(t, m, msgConfirmDelete)

	// Another key cancels the pending delete.
	m, _ = press(t, m, tea.KeyPgDown)
	m, _ = press(t, m, tea.KeyCtrlD)
	if n := h.store.Len(); n != 1 {
		t.Fatalf("cancelled delete still ran: Len = %d", n)
	}

	m, _ = press(t, m, tea.KeyCtrlD)
	wantToast(t, m, msgDeleted)

	// Deleting the last conversation leaves a fresh placeholder selected.
	if n := h.store.Len(); n != 1 {
		t.Fatalf("Len = %d, want placeholder only", n)
	}
	cur, ok := h.store.Current()
	if !ok {
		t.Fatal("no current conversation after delete")
	}
	if cur.Title != model.DefaultTitle || len(cur.Messages) != 0 {
		t.Errorf("placeholder = %q with %d messages", cur.Title, len(cur.Messages))
	}
}

func TestModel_ArchiveToggle(t *testing.T) {
	h, m := newHarness(t, nil)
	id := h.store.Create().ID

	m, _ = press(t, m, tea.KeyCtrlA)
	if conv, _ := h.store.Find(id); !conv.IsArchived {
		t.Error("ctrl+a did not archive")
	}
	wantToast(t, m, msgArchived)

	m, _ = press(t, m, tea.KeyCtrlA)
	if conv, _ := h.store.Find(id); conv.IsArchived {
		t.Error("second ctrl+a did not unarchive")
	}
	wantToast(t, m, msgUnarchived)
}

func TestModel_Rename(t *testing.T) {
	h, m := newHarness(t, nil)
	id := h.store.Create().ID

	m, _ = press(t, m, tea.KeyCtrlR)
	if m.Mode() != ModeRename {
		t.Fatalf("Mode = %v, want rename", m.Mode())
	}
	if v := m.input.Value(); v != model.DefaultTitle {
		t.Errorf("rename prompt prefilled with %q", v)
	}

	m.input.SetValue("")
	m = typeText(t, m, "Trip planning")
	m, _ = press(t, m, tea.KeyEnter)
	if m.Mode() != ModeChat {
		t.Errorf("Mode = %v after enter, want chat", m.Mode())
	}

	if conv, _ := h.store.Find(id); conv.Title != "Trip planning" {
		t.Errorf("Title = %q", conv.Title)
	}
}

func TestModel_SearchSelectsFirstMatch(t *testing.T) {
	h, m := newHarness(t, nil)
	a := h.store.Create().ID
	if _, err := h.store.AppendMessage(a, model.Message{Role: model.RoleUser, Content: "golang generics"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	h.store.Create()

	m, _ = press(t, m, tea.KeyCtrlF)
	if m.Mode() != ModeSearch {
		t.Fatalf("Mode = %v, want search", m.Mode())
	}
	m = typeText(t, m, "generics")
	if n := len(m.visible()); n != 1 {
		t.Errorf("visible = %d, want 1", n)
	}

	m, _ = press(t, m, tea.KeyEnter)
	if m.Mode() != ModeChat {
		t.Errorf("Mode = %v after enter, want chat", m.Mode())
	}
	if got := h.store.CurrentID(); got != a {
		t.Errorf("CurrentID = %q, want first match %q", got, a)
	}

	m, _ = press(t, m, tea.KeyCtrlF)
	m, _ = press(t, m, tea.KeyEsc)
	if n := len(m.visible()); n != 2 {
		t.Errorf("escape should clear the filter: visible = %d", n)
	}
}

// =============================================================================
// FILES AND CLIPBOARD
// =============================================================================

func TestModel_ExportThenImport(t *testing.T) {
	h, m := newHarness(t, nil)
	id := h.store.Create().ID
	if _, err := h.store.AppendMessage(id, model.Message{Role: model.RoleUser, Content: "keep me"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	m, _ = press(t, m, tea.KeyCtrlE)
	path := filepath.Join(h.dir, "conversation-"+id+".json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	wantToast(t, m, "Exported to "+path)

	m, _ = press(t, m, tea.KeyCtrlO)
	if m.Mode() != ModeImport {
		t.Fatalf("Mode = %v, want import", m.Mode())
	}
	m = typeText(t, m, path)
	m, _ = press(t, m, tea.KeyEnter)

	wantToast(t, m, msgImported)
	if n := h.store.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
	if h.store.CurrentID() == id {
		t.Error("imported conversation not selected")
	}
}

func TestModel_ExportWithoutConversation(t *testing.T) {
	_, m := newHarness(t, nil)

	m, _ = press(t, m, tea.KeyCtrlE)
	wantToast(t, m, msgNoConversation)
}

func TestModel_ImportBadFile(t *testing.T) {
	h, m := newHarness(t, nil)
	bad := filepath.Join(h.dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"title":"no id"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, _ = press(t, m, tea.KeyCtrlO)
	m = typeText(t, m, bad)
	m, _ = press(t, m, tea.KeyEnter)

	toast := lastToast(t, m)
	if toast.Kind != components.ToastKindError || toast.Message != msgImportFailed {
		t.Errorf("toast = %+v", toast)
	}
	if n := h.store.Len(); n != 0 {
		t.Errorf("rejected import added conversations: Len = %d", n)
	}
}

func TestModel_CopyLastCodeBlock(t *testing.T) {
	h, m := newHarness(t, nil)
	id := h.store.Create().ID
	for _, msg := range []model.Message{
		{Role: model.RoleAssistant, Content: "```go\nfmt.Println(1)\n```\n\n```sh\nls -la\n```"},
		{Role: model.RoleUser, Content: "thanks"},
	} {
		if _, err := h.store.AppendMessage(id, msg); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	m, _ = press(t, m, tea.KeyCtrlY)
	if len(h.copied) != 1 || h.copied[0] != "ls -la" {
		t.Errorf("copied = %q, want the last code block", h.copied)
	}
	wantToast(t, m, msgCopied)
}

func TestModel_CopyWithoutCode(t *testing.T) {
	h, m := newHarness(t, nil)
	id := h.store.Create().ID
	if _, err := h.store.AppendMessage(id, model.Message{Role: model.RoleUser, Content: "plain text"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	m, _ = press(t, m, tea.KeyCtrlY)
	if len(h.copied) != 0 {
		t.Errorf("copied = %q, want nothing", h.copied)
	}
	wantToast(t, m, msgNoCode)
}

// =============================================================================
// PREFERENCES AND EVENTS
// =============================================================================

func TestModel_SidebarCollapsePersists(t *testing.T) {
	h, m := newHarness(t, nil)
	if m.SidebarCollapsed() {
		t.Fatal("sidebar starts collapsed")
	}

	m, _ = press(t, m, tea.KeyCtrlB)
	if !m.SidebarCollapsed() {
		t.Error("ctrl+b did not collapse the sidebar")
	}
	if !h.adapter.LoadFlag(storage.KeySidebarCollapsed) {
		t.Error("collapsed flag not persisted")
	}

	again := New(Deps{Store: h.store, Adapter: h.adapter, Bridge: h.bridge, Theme: styles.NewTheme(styles.ModeDark)})
	if !again.SidebarCollapsed() {
		t.Error("new model ignored the persisted flag")
	}
}

func TestModel_ThemeTogglePersists(t *testing.T) {
	h, m := newHarness(t, nil)
	if !m.Theme().IsDark {
		t.Fatal("harness theme should start dark")
	}

	m, _ = press(t, m, tea.KeyCtrlT)
	if m.Theme().IsDark {
		t.Error("ctrl+t did not switch to light")
	}
	if mode, ok := h.adapter.LoadString(storage.KeyTheme); !ok || mode != styles.ModeLight {
		t.Errorf("persisted theme = %q ok=%v", mode, ok)
	}
}

func TestModel_PersistFailureToast(t *testing.T) {
	_, m := newHarness(t, nil)

	m = update(t, m, StoreEventMsg{Event: store.Event{Kind: store.EventPersistFailed, Err: storage.ErrQuotaExceeded}})
	toast := lastToast(t, m)
	if toast.Kind != components.ToastKindError || toast.Message != msgPersistFailed {
		t.Errorf("toast = %+v", toast)
	}
}

func TestModel_QuitCancelsContext(t *testing.T) {
	_, m := newHarness(t, nil)

	m, cmd := press(t, m, tea.KeyCtrlC)
	if cmd == nil {
		t.Fatal("ctrl+c produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
	if m.ctx.Err() == nil {
		t.Error("model context not cancelled")
	}
	if v := m.View(); v != "" {
		t.Errorf("View after quit = %q", v)
	}
}

func TestBridge_DeliversStoreEvents(t *testing.T) {
	st := store.New(storage.NewAdapter(storage.NewMemoryKV(), nil))
	b := NewBridge()
	unsubscribe := b.Attach(st)
	defer unsubscribe()

	id := st.Create().ID
	msg, ok := b.Wait()().(StoreEventMsg)
	if !ok {
		t.Fatal("first bridge message is not a store event")
	}
	if msg.Event.Kind != store.EventCreated || msg.Event.ID != id {
		t.Errorf("event = %+v", msg.Event)
	}

	b.Notify(orchestrator.LevelSuccess, "done")
	// drain the remaining events from Create
	for {
		if n, ok := b.Wait()().(NotifyMsg); ok {
			if n.Message != "done" {
				t.Errorf("notify message = %q", n.Message)
			}
			break
		}
	}
}

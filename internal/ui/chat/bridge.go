// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	orchestrator "github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/store"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StoreEventMsg carries a store change into Update.
type StoreEventMsg struct {
	Event store.Event
}

// TypingMsg reports the typing indicator for a conversation.
type TypingMsg struct {
	ConversationID string
	Active         bool
}

// NotifyMsg is a notification raised outside the Update loop.
type NotifyMsg struct {
	Level   orchestrator.Level
	Message string
}

// SendDoneMsg ends a send started by the Model.
type SendDoneMsg struct {
	Result *orchestrator.Result
	Err    error
}

// =============================================================================
// BRIDGE
// =============================================================================

// bridgeBuffer bounds queued messages. Store events only trigger a redraw,
// so one dropped under pressure is recovered by the next.
const bridgeBuffer = 64

// Bridge forwards store events and orchestrator callbacks to the Bubble Tea
// loop. It implements orchestrator.Observer.
type Bridge struct {
	ch chan tea.Msg
}

// NewBridge creates a bridge.
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan tea.Msg, bridgeBuffer)}
}

// Attach subscribes the bridge to st. The returned function unsubscribes.
func (b *Bridge) Attach(st *store.Store) func() {
	return st.Subscribe(func(ev store.Event) {
		b.post(StoreEventMsg{Event: ev})
	})
}

func (b *Bridge) TypingStarted(id string) { b.post(TypingMsg{ConversationID: id, Active: true}) }
func (b *Bridge) TypingStopped(id string) { b.post(TypingMsg{ConversationID: id, Active: false}) }

func (b *Bridge) Notify(level orchestrator.Level, msg string) {
	b.post(NotifyMsg{Level: level, Message: msg})
}

// post never blocks; callbacks run on store and orchestrator goroutines.
func (b *Bridge) post(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
	}
}

// Wait returns a command that delivers the next bridged message.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}

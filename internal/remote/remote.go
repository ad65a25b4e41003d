// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package remote defines the contract between the chat orchestrator and a
// remote chat-completion endpoint.
//
// A Completer receives the recent history as role/content turns and returns
// one complete reply. Backends live in their own packages (ollama, cloud)
// and are selected at startup.
package remote

import (
	"context"
	"strings"
)

// Turn is one history entry sent to the endpoint.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the endpoint's answer. Message is nil when the endpoint returned
// nothing usable.
type Reply struct {
	Message *ReplyMessage `json:"message"`
}

// ReplyMessage holds the assistant text of a Reply.
type ReplyMessage struct {
	Content string `json:"content"`
}

// Text returns the reply content and whether it is non-blank.
func (r *Reply) Text() (string, bool) {
	if r == nil || r.Message == nil || strings.TrimSpace(r.Message.Content) == "" {
		return "", false
	}
	return r.Message.Content, true
}

// NewReply builds a Reply carrying content.
func NewReply(content string) *Reply {
	return &Reply{Message: &ReplyMessage{Content: content}}
}

// Completer sends history and waits for a single reply. Implementations
// must honour ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (*Reply, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, turns []Turn) (*Reply, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, turns []Turn) (*Reply, error) {
	return f(ctx, turns)
}

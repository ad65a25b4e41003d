// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// RenderMessage draws one transcript entry: a role label with the time,
// then the body. Error turns are shown verbatim in the error style; every
// other body goes through the Markdown renderer.
func RenderMessage(msg model.Message, theme *styles.Theme, opts RenderOptions) string {
	var label string
	switch msg.Role {
	case model.RoleAssistant:
		label = theme.AssistantLabel.Render(msg.Role.DisplayName())
	case model.RoleSystem:
		label = theme.SystemLabel.Render(msg.Role.DisplayName())
	default:
		label = theme.UserLabel.Render(msg.Role.DisplayName())
	}
	header := label + " " + theme.Timestamp.Render(msg.Timestamp.Local().Format("15:04"))

	var body string
	if msg.IsError {
		body = theme.Error.Render(strings.TrimSpace(msg.Content))
	} else {
		body = RenderMarkdown(msg.Content, theme, opts)
	}
	return header + "\n" + body
}

// RenderTranscript renders every message of conv, or the empty state.
func RenderTranscript(conv *model.Conversation, theme *styles.Theme, opts RenderOptions) string {
	if conv == nil || len(conv.Messages) == 0 {
		return theme.Empty.Render(EmptyTranscript)
	}
	parts := make([]string, len(conv.Messages))
	for i, msg := range conv.Messages {
		parts[i] = RenderMessage(msg, theme, opts)
	}
	return strings.Join(parts, "\n\n")
}

// EmptyTranscript is shown for a conversation without messages.
const EmptyTranscript = "Start a conversation by typing a message below."

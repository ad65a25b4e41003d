// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a titled, ordered sequence of messages.
type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	IsArchived bool      `json:"isArchived"`
}

// NewConversation creates an empty conversation with the placeholder title.
func NewConversation(id string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     DefaultTitle,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasPlaceholderTitle reports whether the title was never set from content.
func (c *Conversation) HasPlaceholderTitle() bool {
	return c.Title == "" || c.Title == DefaultTitle
}

// DisplayTitle returns the title, or DefaultTitle if it is unset.
func (c *Conversation) DisplayTitle() string {
	if strings.TrimSpace(c.Title) == "" {
		return DefaultTitle
	}
	return c.Title
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// LastMessage returns the most recent message and true, or false if empty.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Preview returns a one-line excerpt of the first message for list views.
// Markup-looking tags are removed so previews never carry HTML.
func (c *Conversation) Preview(maxRunes int) string {
	if len(c.Messages) == 0 {
		return ""
	}
	text := tagPattern.ReplaceAllString(c.Messages[0].Content, "")
	text = strings.TrimSpace(util.FirstLine(strings.TrimSpace(text)))
	return util.TruncateRunes(text, maxRunes)
}

// Matches reports whether the title or any one message body contains
// term, ignoring case. Fields are matched separately so a term never spans
// two of them. An empty term matches every conversation.
func (c *Conversation) Matches(term string) bool {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Title), needle) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), needle) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}

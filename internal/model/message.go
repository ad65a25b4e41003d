// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole maps s onto a known role. Unknown or empty values become
// RoleUser, which is how imported records with missing roles are read.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r
	}
	return RoleUser
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in a conversation. Content is stored raw and is
// only transformed at render time.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// IsError marks an assistant turn synthesised from a failed remote call.
	IsError bool `json:"isError,omitempty"`
}

// NewMessage creates a message with the given role and timestamp.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{Role: role, Content: content, Timestamp: at}
}

// NewErrorMessage creates the assistant turn recorded when a send fails.
func NewErrorMessage(description string, at time.Time) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   "Error: " + description,
		Timestamp: at,
		IsError:   true,
	}
}

// IsBlank reports whether the content is empty after trimming whitespace.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == ""
}

// WellFormed reports whether the message has a known role and non-blank
// content, which is what the remote endpoint accepts as history.
func (m Message) WellFormed() bool {
	return m.Role.Valid() && !m.IsBlank()
}

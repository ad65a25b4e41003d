// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import "fmt"

// StoreError is a comparable store failure.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// Is lets errors.Is match sentinels by message.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	return ok && t.Message == e.Message
}

var (
	// ErrConversationNotFound is returned for an unknown conversation id.
	ErrConversationNotFound = &StoreError{Message: "conversation not found"}

	// ErrEmptyContent is returned when a message has no non-whitespace text.
	ErrEmptyContent = &StoreError{Message: "message content is empty"}
)

// FormatError reports an import record that is not a conversation.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid conversation format: %s: %v", e.Reason, e.Err)
	}
	return "invalid conversation format: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

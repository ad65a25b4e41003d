// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/ollama"
	"github.com/jeranaias/parley/internal/store"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a malformed command line.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// NotFoundError names a conversation reference that matched nothing.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation not found: %s", e.Ref)
}

func (e *NotFoundError) Is(target error) bool {
	return target == store.ErrConversationNotFound
}

// ExitCodeFor maps err to a process exit code.
func ExitCodeFor(err error) int {
	var usage *UsageError
	var verrs config.ValidateErrors
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &verrs):
		return ExitConfigError
	case errors.Is(err, store.ErrConversationNotFound):
		return ExitNotFoundError
	case errors.Is(err, ollama.ErrNotRunning):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// PrintError writes err in the "Error: ..." form.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

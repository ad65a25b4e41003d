// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/remote"
	"github.com/jeranaias/parley/internal/store"
)

// Defaults.
const (
	DefaultWindow  = 10
	DefaultTimeout = 60 * time.Second
)

// genericFailure is shown when an error carries no description.
const genericFailure = "An error occurred. Please try again."

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput rejects a send whose text is blank.
	ErrEmptyInput = errors.New("message is empty")

	// ErrBusy rejects a send while another is in flight.
	ErrBusy = errors.New("a message is already being sent")

	// ErrMalformedReply is the failure recorded for a reply without content.
	ErrMalformedReply = errors.New("Invalid response format from AI")

	// ErrTimedOut is the failure recorded when the endpoint does not answer
	// within the timeout.
	ErrTimedOut = errors.New("Request timed out")
)

// =============================================================================
// STATE
// =============================================================================

// State is the orchestrator phase.
type State int32

const (
	StateIdle State = iota
	StateSending
)

func (s State) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

// =============================================================================
// OBSERVER
// =============================================================================

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Observer receives progress callbacks. Calls arrive on the goroutine
// running Send.
type Observer interface {
	TypingStarted(conversationID string)
	TypingStopped(conversationID string)
	Notify(level Level, message string)
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) TypingStarted(string) {}
func (NopObserver) TypingStopped(string) {}
func (NopObserver) Notify(Level, string) {}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Options configures an Orchestrator. Zero values take defaults.
type Options struct {
	Window   int
	Timeout  time.Duration
	Observer Observer
	Logger   logrus.FieldLogger
}

// Orchestrator drives send cycles against one store and endpoint.
type Orchestrator struct {
	store     *store.Store
	completer remote.Completer
	window    int
	timeout   time.Duration
	observer  Observer
	log       logrus.FieldLogger

	state atomic.Int32
}

// Result describes a completed cycle. Err is set when the failure path ran;
// Reply is then the recorded error turn.
type Result struct {
	ConversationID string
	User           model.Message
	Reply          model.Message
	Err            error
}

// New builds an orchestrator.
func New(s *store.Store, c remote.Completer, opts Options) *Orchestrator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &Orchestrator{
		store:     s,
		completer: c,
		window:    opts.Window,
		timeout:   opts.Timeout,
		observer:  opts.Observer,
		log:       logging.OrDiscard(opts.Logger),
	}
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// IsSending reports whether a cycle is in flight.
func (o *Orchestrator) IsSending() bool {
	return o.State() == StateSending
}

// Send runs one cycle for conversationID.
//
// Blank text returns ErrEmptyInput and a concurrent cycle returns ErrBusy;
// neither changes any state. A failure to record the user message is
// returned as is. Every other outcome, including remote errors, returns a
// Result and a nil error.
func (o *Orchestrator) Send(ctx context.Context, conversationID, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateSending)) {
		return nil, ErrBusy
	}
	defer o.state.Store(int32(StateIdle))

	user, err := o.store.AppendMessage(conversationID, model.NewMessage(model.RoleUser, text, time.Time{}))
	if err != nil {
		return nil, err
	}

	o.observer.TypingStarted(conversationID)
	defer o.observer.TypingStopped(conversationID)

	result := &Result{ConversationID: conversationID, User: user}

	content, err := o.exchange(ctx, conversationID)
	if err == nil {
		reply, appendErr := o.store.AppendMessage(conversationID, model.NewMessage(model.RoleAssistant, content, time.Time{}))
		if appendErr == nil {
			result.Reply = reply
			return result, nil
		}
		err = appendErr
	}

	description := describe(err)
	o.log.WithFields(logrus.Fields{"id": conversationID, "error": err}).Warn("SEND_FAILED")

	result.Err = err
	if reply, appendErr := o.store.AppendMessage(conversationID, model.NewErrorMessage(description, time.Time{})); appendErr == nil {
		result.Reply = reply
	} else {
		o.log.WithFields(logrus.Fields{"id": conversationID, "error": appendErr}).Error("SEND_ERROR_NOT_RECORDED")
	}
	o.observer.Notify(LevelError, description)
	return result, nil
}

// exchange asks the endpoint for a reply to the conversation's recent
// history and returns its content.
func (o *Orchestrator) exchange(ctx context.Context, conversationID string) (string, error) {
	conv, ok := o.store.Find(conversationID)
	if !ok {
		return "", store.ErrConversationNotFound
	}
	turns := BuildContext(conv.Messages, o.window)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	started := time.Now()
	reply, err := o.call(ctx, turns)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrTimedOut, err)
		}
		return "", err
	}

	content, ok := reply.Text()
	if !ok {
		return "", ErrMalformedReply
	}
	o.log.WithFields(logrus.Fields{
		"id":       conversationID,
		"turns":    len(turns),
		"duration": time.Since(started).Round(time.Millisecond),
	}).Info("SEND_COMPLETED")
	return content, nil
}

// call invokes the completer off the caller's goroutine so a completer that
// ignores ctx cannot hold the cycle past its deadline. A panic becomes an
// error. An abandoned call finishes into a buffered channel nobody reads.
func (o *Orchestrator) call(ctx context.Context, turns []remote.Turn) (*remote.Reply, error) {
	type outcome struct {
		reply *remote.Reply
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("remote call panicked: %v", r)}
			}
			done <- out
		}()
		out.reply, out.err = o.completer.Complete(ctx, turns)
	}()

	select {
	case out := <-done:
		return out.reply, out.err
	case <-ctx.Done():
		o.log.WithField("error", ctx.Err()).Warn("SEND_ABANDONED")
		return nil, ctx.Err()
	}
}

// describe produces the user-facing failure text.
func describe(err error) string {
	if errors.Is(err, ErrTimedOut) {
		return ErrTimedOut.Error()
	}
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return genericFailure
	}
	return err.Error()
}

// =============================================================================
// CONTEXT WINDOW
// =============================================================================

// BuildContext keeps the last window well-formed messages and projects them
// to turns. Messages with unknown roles or blank content are skipped.
func BuildContext(messages []model.Message, window int) []remote.Turn {
	valid := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.WellFormed() {
			valid = append(valid, m)
		}
	}
	if window > 0 && len(valid) > window {
		valid = valid[len(valid)-window:]
	}

	turns := make([]remote.Turn, len(valid))
	for i, m := range valid {
		turns[i] = remote.Turn{Role: string(m.Role), Content: m.Content}
	}
	return turns
}

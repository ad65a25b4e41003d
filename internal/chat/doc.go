// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs one send cycle at a time: record the user message, ask
// the remote endpoint for a reply with a bounded slice of history, and
// record either the reply or an error turn.
//
// # State Machine
//
//	Idle --Send--> Sending --reply--> Idle (assistant message appended)
//	                       --error--> Idle (error message appended, Notify)
//
// While Sending, every other Send is rejected with ErrBusy, regardless of
// which conversation it targets.
//
// Send blocks until the cycle completes. Views run it off their event loop.
package chat

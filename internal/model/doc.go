// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: a titled, ordered list of messages with timestamps and an
//     archive flag
//   - Message: a single turn with role, raw content, timestamp and error flag
//   - Role: message role enumeration (user, assistant, system)
//
// The JSON shape of these types is the persisted and exported record format,
// so field tags must not change.
//
// # Usage
//
//	conv := model.NewConversation(id, time.Now())
//	conv.Messages = append(conv.Messages, model.NewMessage(model.RoleUser, "Hello!", time.Now()))
//	conv.Title = model.DeriveTitle("Hello!")
package model

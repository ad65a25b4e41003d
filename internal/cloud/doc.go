// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides a chat backend for OpenAI-compatible APIs such as
// OpenRouter, OpenAI or a local gateway.
//
// Client implements remote.Completer with a single non-streaming chat
// completion per call.
//
// # Usage
//
//	client, err := cloud.NewClient(cloud.Config{APIKey: key, Model: "openai/gpt-4o-mini"})
//	reply, err := client.Complete(ctx, turns)
package cloud

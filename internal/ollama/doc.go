// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the Ollama chat API.
//
// Only non-streaming chat is used: one request, one complete reply. Client
// implements remote.Completer.
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL:      "http://127.0.0.1:11434",
//	    DefaultModel: "llama3.2",
//	})
//	reply, err := client.Complete(ctx, []remote.Turn{{Role: "user", Content: "Hello"}})
package ollama

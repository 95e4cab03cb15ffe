// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a local Ollama server.
//
// hirechat uses it two ways: a non-streaming, JSON-formatted chat call for
// the intent fallback classifier, and a streaming chat call that feeds
// assistant replies into the conversation ledger token by token.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - Message: chat message with role and content
//   - ChatRequest / ChatResponse: /api/chat request and response bodies
//   - StreamReader: NDJSON reader for streamed responses
//
// # Usage
//
//	client := ollama.NewClient()
//	resp, err := client.Chat(ctx, ollama.ChatRequest{
//	    Model:    "qwen2.5:7b-instruct",
//	    Messages: []ollama.Message{ollama.NewUserMessage("Hello")},
//	    Format:   "json",
//	})
//
// For streaming responses:
//
//	err := client.ChatStream(ctx, req, func(chunk ollama.StreamChunk) {
//	    fmt.Print(chunk.Content)
//	})
package ollama

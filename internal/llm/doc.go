// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm abstracts the generative text providers hirechat talks to.
//
// A Client does two jobs: Complete answers a single structured prompt (the
// intent fallback classifier), and Stream produces a conversational reply
// chunk by chunk (the conversation façade).
//
// # Key Types
//
//   - Client: the provider interface
//   - Turn: one message of conversation history
//   - Ollama: local provider backed by internal/ollama
//   - Gemini: hosted provider backed by google.golang.org/genai
//
// # Usage
//
//	client, err := llm.New(ctx, cfg.LLM, logger)
//	if err != nil {
//	    return err
//	}
//	if client == nil {
//	    // provider "none": no fallback, simulated replies only
//	}
package llm

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"fmt"

	"github.com/jeranaias/hirechat/internal/ollama"
)

// Ollama adapts an ollama.Client to Client.
type Ollama struct {
	client *ollama.Client
	model  string
}

// NewOllama wraps client. An empty model uses the client's default.
func NewOllama(client *ollama.Client, model string) *Ollama {
	if model == "" {
		model = client.DefaultModel()
	}
	return &Ollama{client: client, model: model}
}

// Name implements Client.
func (o *Ollama) Name() string {
	return "ollama/" + o.model
}

// Complete implements Client with a deterministic JSON-format chat call.
func (o *Ollama) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.Chat(ctx, ollama.ChatRequest{
		Model: o.model,
		Messages: []ollama.Message{
			ollama.NewSystemMessage(system),
			ollama.NewUserMessage(prompt),
		},
		Format:  "json",
		Options: &ollama.Options{Temperature: 0},
	})
	if err != nil {
		return "", fmt.Errorf("ollama complete: %w", err)
	}
	return resp.Message.Content, nil
}

// Stream implements Client.
func (o *Ollama) Stream(ctx context.Context, turns []Turn, onChunk func(string)) error {
	msgs := make([]ollama.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, ollama.Message{Role: t.Role, Content: t.Content})
	}

	err := o.client.ChatStream(ctx, ollama.ChatRequest{Model: o.model, Messages: msgs}, func(chunk ollama.StreamChunk) {
		if chunk.Content != "" {
			onChunk(chunk.Content)
		}
	})
	if err != nil {
		return fmt.Errorf("ollama stream: %w", err)
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/config"
	"github.com/jeranaias/hirechat/internal/ollama"
)

// Turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of conversation history sent to a provider.
type Turn struct {
	Role    string
	Content string
}

// Client is a generative text provider.
type Client interface {
	// Complete answers prompt under the system instruction, asking the
	// provider for JSON output.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Stream generates a reply to turns, calling onChunk with each piece
	// of text in order. It returns when generation ends or ctx is done.
	Stream(ctx context.Context, turns []Turn, onChunk func(string)) error

	// Name identifies the provider and model for logs.
	Name() string
}

// ErrUnknownProvider is returned by New for an unrecognized provider.
var ErrUnknownProvider = errors.New("unknown llm provider")

// New builds the Client selected by cfg.Provider. Provider "none" returns
// a nil Client and nil error.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case "ollama":
		client = NewOllama(ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.OllamaURL,
			Timeout:      cfg.Timeout,
			DefaultModel: cfg.Model,
		}), cfg.Model)
	case "gemini":
		client, err = NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout)
	case "none", "":
		logger.Info("no llm provider configured")
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("llm provider ready", zap.String("provider", client.Name()))
	return client, nil
}

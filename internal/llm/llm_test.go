// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/jeranaias/hirechat/internal/config"
	"github.com/jeranaias/hirechat/internal/ollama"
)

type ollamaRequest struct {
	Model    string           `json:"model"`
	Messages []ollama.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Format   string           `json:"format"`
	Options  *ollama.Options  `json:"options"`
}

func newOllama(t *testing.T, handler func(w http.ResponseWriter, req ollamaRequest)) *Ollama {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return NewOllama(ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}), "m")
}

func TestOllamaComplete(t *testing.T) {
	o := newOllama(t, func(w http.ResponseWriter, req ollamaRequest) {
		if req.Format != "json" {
			t.Errorf("Format = %q, want json", req.Format)
		}
		if req.Options == nil || req.Options.Temperature != 0 {
			t.Errorf("Options = %+v, want temperature 0", req.Options)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "prompt" {
			t.Errorf("Messages = %+v", req.Messages)
		}
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"{\"isCommand\":true}"},"done":true}`)
	})

	got, err := o.Complete(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"isCommand":true}` {
		t.Errorf("Complete() = %q", got)
	}
	if o.Name() != "ollama/m" {
		t.Errorf("Name() = %q", o.Name())
	}
}

func TestOllamaStream(t *testing.T) {
	o := newOllama(t, func(w http.ResponseWriter, req ollamaRequest) {
		if !req.Stream {
			t.Error("stream = false")
		}
		if len(req.Messages) != 3 || req.Messages[2].Role != RoleUser {
			t.Errorf("Messages = %+v", req.Messages)
		}
		fmt.Fprintln(w, `{"message":{"content":"Hi "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"there"},"done":true}`)
	})

	var chunks []string
	err := o.Stream(context.Background(), []Turn{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "hi"},
	}, func(s string) { chunks = append(chunks, s) })
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if strings.Join(chunks, "|") != "Hi |there" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestOllamaCompleteError(t *testing.T) {
	o := newOllama(t, func(w http.ResponseWriter, req ollamaRequest) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := o.Complete(context.Background(), "s", "p")
	if !ollama.IsModelNotFound(err) {
		t.Errorf("err = %v, want model not found through wrapping", err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	client, err := New(ctx, config.LLMConfig{Provider: "none"}, nil)
	if err != nil || client != nil {
		t.Errorf("New(none) = %v, %v; want nil, nil", client, err)
	}

	client, err = New(ctx, config.LLMConfig{Provider: "ollama", OllamaURL: "http://127.0.0.1:1", Model: "x"}, nil)
	if err != nil {
		t.Fatalf("New(ollama) error = %v", err)
	}
	if client.Name() != "ollama/x" {
		t.Errorf("Name() = %q", client.Name())
	}

	if _, err := New(ctx, config.LLMConfig{Provider: "gemini"}, nil); err == nil {
		t.Error("New(gemini) without key returned nil error")
	}

	client, err = New(ctx, config.LLMConfig{Provider: "gemini", GeminiAPIKey: "k", GeminiModel: "g"}, nil)
	if err != nil {
		t.Fatalf("New(gemini) error = %v", err)
	}
	if client.Name() != "gemini/g" {
		t.Errorf("Name() = %q", client.Name())
	}

	if _, err := New(ctx, config.LLMConfig{Provider: "openai"}, nil); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("New(openai) error = %v, want ErrUnknownProvider", err)
	}
}

func TestGeminiContents(t *testing.T) {
	system, contents := geminiContents([]Turn{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "hello"},
	})
	if system != "a\n\nb" {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("len(contents) = %d, want 2", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) || contents[1].Role != string(genai.RoleModel) {
		t.Errorf("roles = %q, %q", contents[0].Role, contents[1].Role)
	}
}

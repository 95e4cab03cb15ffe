// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HIRECHAT_CONFIG", "HIRECHAT_LLM_PROVIDER", "HIRECHAT_MODEL", "HIRECHAT_OLLAMA_URL",
		"HIRECHAT_GEMINI_API_KEY", "GEMINI_API_KEY", "HIRECHAT_LEDGER_BACKEND",
		"HIRECHAT_DATA_DIR", "HIRECHAT_LOG_LEVEL", "HIRECHAT_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Intent.FallbackThreshold != 0.70 {
		t.Errorf("FallbackThreshold = %v, want 0.70", cfg.Intent.FallbackThreshold)
	}
	if cfg.Ledger.CheckpointSchedule != "@every 30s" {
		t.Errorf("CheckpointSchedule = %q", cfg.Ledger.CheckpointSchedule)
	}
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[llm]
provider = "none"

[intent]
fallback_enabled = false
fallback_threshold = 0.8
fallback_timeout = "3s"

[ledger]
backend = "sqlite"
seed = false

[conversation]
simulated_reply_delay = "10ms"
simulated_replies = ["ok"]

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != "none" {
		t.Errorf("Provider = %q", cfg.LLM.Provider)
	}
	if cfg.Intent.FallbackEnabled {
		t.Error("FallbackEnabled = true, want false")
	}
	if cfg.Intent.FallbackThreshold != 0.8 {
		t.Errorf("FallbackThreshold = %v", cfg.Intent.FallbackThreshold)
	}
	if cfg.Intent.FallbackTimeout != 3*time.Second {
		t.Errorf("FallbackTimeout = %v", cfg.Intent.FallbackTimeout)
	}
	if cfg.Ledger.Backend != "sqlite" || cfg.Ledger.Seed {
		t.Errorf("Ledger = %+v", cfg.Ledger)
	}
	if cfg.Conversation.SimulatedReplyDelay != 10*time.Millisecond {
		t.Errorf("SimulatedReplyDelay = %v", cfg.Conversation.SimulatedReplyDelay)
	}
	if len(cfg.Conversation.SimulatedReplies) != 1 {
		t.Errorf("SimulatedReplies = %v", cfg.Conversation.SimulatedReplies)
	}
	// untouched sections keep defaults
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[llm]\nprovidr = \"none\"\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "llm.providr") {
		t.Errorf("Load() error = %v, want unknown key", err)
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server]\naddr = \":9999\"\n")
	t.Setenv("HIRECHAT_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Server.Addr)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HIRECHAT_LLM_PROVIDER", "Gemini")
	t.Setenv("HIRECHAT_MODEL", "gemini-2.0-flash")
	t.Setenv("GEMINI_API_KEY", "sdk-key")
	t.Setenv("HIRECHAT_GEMINI_API_KEY", "app-key")
	t.Setenv("HIRECHAT_LEDGER_BACKEND", "memory")
	t.Setenv("HIRECHAT_DATA_DIR", "/tmp/hc")
	t.Setenv("HIRECHAT_LOG_LEVEL", "WARN")
	t.Setenv("HIRECHAT_ADDR", ":7000")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.LLM.Provider != "gemini" {
		t.Errorf("Provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("GeminiModel = %q", cfg.LLM.GeminiModel)
	}
	if cfg.LLM.GeminiAPIKey != "app-key" {
		t.Errorf("GeminiAPIKey = %q, want prefixed variable to win", cfg.LLM.GeminiAPIKey)
	}
	if cfg.Ledger.Backend != "memory" || cfg.Ledger.DataDir != "/tmp/hc" {
		t.Errorf("Ledger = %+v", cfg.Ledger)
	}
	if cfg.Logging.Level != "warn" || cfg.Server.Addr != ":7000" {
		t.Errorf("Logging.Level = %q, Server.Addr = %q", cfg.Logging.Level, cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"provider", func(c *Config) { c.LLM.Provider = "openai" }, "llm.provider"},
		{"ollama url", func(c *Config) { c.LLM.OllamaURL = "localhost" }, "llm.ollama_url"},
		{"gemini key", func(c *Config) { c.LLM.Provider = "gemini" }, "llm.gemini_api_key"},
		{"threshold high", func(c *Config) { c.Intent.FallbackThreshold = 1.5 }, "intent.fallback_threshold"},
		{"threshold low", func(c *Config) { c.Intent.FallbackThreshold = -0.1 }, "intent.fallback_threshold"},
		{"backend", func(c *Config) { c.Ledger.Backend = "postgres" }, "ledger.backend"},
		{"schedule", func(c *Config) { c.Ledger.CheckpointSchedule = "every thirty" }, "ledger.checkpoint_schedule"},
		{"empty reply", func(c *Config) { c.Conversation.SimulatedReplies = []string{" "} }, "conversation.simulated_replies"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want ValidateErrors", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want error on %s", err, tt.field)
			}
		})
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.LLM.Provider = "none"
	cfg.Intent.FallbackTimeout = 5 * time.Second
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.LLM.Provider != "none" || loaded.Intent.FallbackTimeout != 5*time.Second {
		t.Errorf("loaded = %+v / %+v", loaded.LLM, loaded.Intent)
	}
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.LLM.GeminiAPIKey = "secret-key"
	cfg.Server.APIToken = "secret-token"

	s := cfg.String()
	if strings.Contains(s, "secret-key") || strings.Contains(s, "secret-token") {
		t.Errorf("String() leaked a secret: %s", s)
	}
	if cfg.LLM.GeminiAPIKey != "secret-key" {
		t.Error("String() mutated the original config")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/data"); got != filepath.Join(home, "data") {
		t.Errorf("ExpandPath(~/data) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}

func TestWatchReloads(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	w := &Watcher{Path: path, Debounce: 20 * time.Millisecond, OnChange: func(c *Config) { changes <- c }}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.Logging.Level != "debug" {
			t.Errorf("reloaded level = %q, want debug", cfg.Logging.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
}

func TestWatchSkipsInvalidReload(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	w := &Watcher{Path: path, Debounce: 20 * time.Millisecond, OnChange: func(c *Config) { changes <- c }}
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		t.Errorf("OnChange called with invalid config %+v", cfg.Logging)
	case <-time.After(300 * time.Millisecond):
	}
}

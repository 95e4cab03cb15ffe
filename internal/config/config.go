// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/hirechat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete hirechat configuration.
type Config struct {
	LLM          LLMConfig          `toml:"llm" json:"llm"`
	Intent       IntentConfig       `toml:"intent" json:"intent"`
	Ledger       LedgerConfig       `toml:"ledger" json:"ledger"`
	Conversation ConversationConfig `toml:"conversation" json:"conversation"`
	Server       ServerConfig       `toml:"server" json:"server"`
	Logging      LoggingConfig      `toml:"logging" json:"logging"`
}

// LLMConfig selects and configures the generative text provider.
type LLMConfig struct {
	// Provider is "ollama", "gemini", or "none"
	Provider string `toml:"provider" json:"provider"`
	// Model is the Ollama model name
	Model string `toml:"model" json:"model"`
	// OllamaURL is the URL of the Ollama server
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	// GeminiAPIKey authenticates against the Gemini API
	GeminiAPIKey string `toml:"gemini_api_key" json:"gemini_api_key"`
	// GeminiModel is the Gemini model name
	GeminiModel string `toml:"gemini_model" json:"gemini_model"`
	// Timeout bounds non-streaming requests
	Timeout time.Duration `toml:"timeout" json:"timeout"`
}

// IntentConfig controls the model-backed fallback classifier.
type IntentConfig struct {
	FallbackEnabled   bool          `toml:"fallback_enabled" json:"fallback_enabled"`
	FallbackThreshold float64       `toml:"fallback_threshold" json:"fallback_threshold"`
	FallbackTimeout   time.Duration `toml:"fallback_timeout" json:"fallback_timeout"`
	// FallbackRate is model calls per second; 0 disables limiting
	FallbackRate  float64 `toml:"fallback_rate" json:"fallback_rate"`
	FallbackBurst int     `toml:"fallback_burst" json:"fallback_burst"`
}

// LedgerConfig controls conversation persistence.
type LedgerConfig struct {
	// Backend is "json", "sqlite", or "memory"
	Backend string `toml:"backend" json:"backend"`
	// DataDir holds snapshots; "~" expands to the home directory
	DataDir string `toml:"data_dir" json:"data_dir"`
	// Seed pre-populates example histories on first load
	Seed bool `toml:"seed" json:"seed"`
	// CheckpointSchedule is a cron spec for retrying failed snapshots
	CheckpointSchedule string `toml:"checkpoint_schedule" json:"checkpoint_schedule"`
	// PersistQueue is the persister's pending-conversation capacity
	PersistQueue int `toml:"persist_queue" json:"persist_queue"`
}

// ConversationConfig controls reply generation.
type ConversationConfig struct {
	SimulatedReplyDelay time.Duration `toml:"simulated_reply_delay" json:"simulated_reply_delay"`
	SimulatedReplies    []string      `toml:"simulated_replies" json:"simulated_replies"`
	SystemPrompt        string        `toml:"system_prompt" json:"system_prompt"`
}

// ServerConfig controls the HTTP adapter.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
	// APIToken enables bearer authentication when non-empty
	APIToken string `toml:"api_token" json:"api_token"`
	// Rate is requests per second per client; 0 disables limiting
	Rate  float64 `toml:"rate" json:"rate"`
	Burst int     `toml:"burst" json:"burst"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultSimulatedReplies is the reply pool for simulated candidate replies.
var DefaultSimulatedReplies = []string{
	"Thanks for reaching out! I'm definitely interested.",
	"Could you share more details about the role?",
	"That sounds great. When would you like to talk?",
	"I appreciate it. Let me check my schedule and get back to you.",
	"Is the position remote-friendly?",
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "qwen2.5:7b-instruct",
			OllamaURL:   "http://127.0.0.1:11434",
			GeminiModel: "gemini-2.5-flash",
			Timeout:     30 * time.Second,
		},
		Intent: IntentConfig{
			FallbackEnabled:   true,
			FallbackThreshold: 0.70,
			FallbackTimeout:   8 * time.Second,
			FallbackRate:      2,
			FallbackBurst:     5,
		},
		Ledger: LedgerConfig{
			Backend:            "json",
			DataDir:            "~/.hirechat/data",
			Seed:               true,
			CheckpointSchedule: "@every 30s",
			PersistQueue:       64,
		},
		Conversation: ConversationConfig{
			SimulatedReplyDelay: 1500 * time.Millisecond,
			SimulatedReplies:    append([]string(nil), DefaultSimulatedReplies...),
			SystemPrompt:        "You are a helpful recruiting assistant. Answer concisely.",
		},
		Server: ServerConfig{
			Addr:  "127.0.0.1:8080",
			Rate:  20,
			Burst: 40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the hirechat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".hirechat"), nil
}

// ConfigPath returns the config file path: HIRECHAT_CONFIG if set,
// otherwise ~/.hirechat/config.toml.
func ConfigPath() (string, error) {
	if p := os.Getenv("HIRECHAT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DataDir returns the expanded ledger data directory.
func (c *Config) DataDir() string {
	return ExpandPath(c.Ledger.DataDir)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config file at path, or ConfigPath() when path is empty.
// A missing file yields defaults. Environment overrides are applied last,
// then the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values; unknown keys are rejected.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero setting.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.LLM.Model
	}
	if c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = defaults.LLM.OllamaURL
	}
	if c.LLM.GeminiModel == "" {
		c.LLM.GeminiModel = defaults.LLM.GeminiModel
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = defaults.LLM.Timeout
	}

	if c.Intent.FallbackTimeout == 0 {
		c.Intent.FallbackTimeout = defaults.Intent.FallbackTimeout
	}
	if c.Intent.FallbackBurst == 0 {
		c.Intent.FallbackBurst = defaults.Intent.FallbackBurst
	}

	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaults.Ledger.Backend
	}
	if c.Ledger.DataDir == "" {
		c.Ledger.DataDir = defaults.Ledger.DataDir
	}
	if c.Ledger.CheckpointSchedule == "" {
		c.Ledger.CheckpointSchedule = defaults.Ledger.CheckpointSchedule
	}
	if c.Ledger.PersistQueue == 0 {
		c.Ledger.PersistQueue = defaults.Ledger.PersistQueue
	}

	if len(c.Conversation.SimulatedReplies) == 0 {
		c.Conversation.SimulatedReplies = defaults.Conversation.SimulatedReplies
	}

	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = defaults.Server.Burst
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to path with 0600 permissions.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# hirechat configuration file\n")
	buf.WriteString("# Generated by hirechat - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// SECURITY: API keys live here, owner read/write only
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors if any
// field is out of range.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// LLM
	switch c.LLM.Provider {
	case "ollama":
		if u, err := url.Parse(c.LLM.OllamaURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("llm.ollama_url", "invalid URL '%s', must be http(s)://host[:port]", c.LLM.OllamaURL)
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			add("llm.gemini_api_key", "required when provider is gemini")
		}
	case "none":
	default:
		add("llm.provider", "invalid provider '%s', must be one of: ollama, gemini, none", c.LLM.Provider)
	}
	if c.LLM.Timeout < 0 {
		add("llm.timeout", "must not be negative")
	}

	// Intent
	if c.Intent.FallbackThreshold < 0 || c.Intent.FallbackThreshold > 1 {
		add("intent.fallback_threshold", "must be between 0 and 1, got %v", c.Intent.FallbackThreshold)
	}
	if c.Intent.FallbackTimeout <= 0 {
		add("intent.fallback_timeout", "must be positive")
	}
	if c.Intent.FallbackRate < 0 {
		add("intent.fallback_rate", "must not be negative")
	}
	if c.Intent.FallbackBurst < 1 {
		add("intent.fallback_burst", "must be at least 1")
	}

	// Ledger
	switch c.Ledger.Backend {
	case "json", "sqlite", "memory":
	default:
		add("ledger.backend", "invalid backend '%s', must be one of: json, sqlite, memory", c.Ledger.Backend)
	}
	if _, err := cron.ParseStandard(c.Ledger.CheckpointSchedule); err != nil {
		add("ledger.checkpoint_schedule", "invalid schedule '%s': %v", c.Ledger.CheckpointSchedule, err)
	}
	if c.Ledger.PersistQueue < 1 {
		add("ledger.persist_queue", "must be at least 1")
	}

	// Conversation
	if c.Conversation.SimulatedReplyDelay < 0 {
		add("conversation.simulated_reply_delay", "must not be negative")
	}
	for i, r := range c.Conversation.SimulatedReplies {
		if strings.TrimSpace(r) == "" {
			add("conversation.simulated_replies", "entry %d is empty", i)
		}
	}

	// Server
	if c.Server.Rate < 0 {
		add("server.rate", "must not be negative")
	}
	if c.Server.Burst < 1 {
		add("server.burst", "must be at least 1")
	}

	// Logging
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "invalid level '%s'", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		add("logging.format", "invalid format '%s', must be one of: json, console", c.Logging.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - HIRECHAT_LLM_PROVIDER: overrides llm.provider
//   - HIRECHAT_MODEL: overrides llm.model (and llm.gemini_model for gemini)
//   - HIRECHAT_OLLAMA_URL: overrides llm.ollama_url
//   - HIRECHAT_GEMINI_API_KEY, GEMINI_API_KEY: overrides llm.gemini_api_key
//   - HIRECHAT_LEDGER_BACKEND: overrides ledger.backend
//   - HIRECHAT_DATA_DIR: overrides ledger.data_dir
//   - HIRECHAT_LOG_LEVEL: overrides logging.level
//   - HIRECHAT_ADDR: overrides server.addr
func (c *Config) ApplyEnvOverrides() {
	if provider := os.Getenv("HIRECHAT_LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = strings.ToLower(provider)
	}

	if model := os.Getenv("HIRECHAT_MODEL"); model != "" {
		if c.LLM.Provider == "gemini" {
			c.LLM.GeminiModel = model
		} else {
			c.LLM.Model = model
		}
	}

	if u := os.Getenv("HIRECHAT_OLLAMA_URL"); u != "" {
		c.LLM.OllamaURL = u
	}

	// GEMINI_API_KEY is the SDK's own variable; the prefixed one wins.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.GeminiAPIKey = key
	}
	if key := os.Getenv("HIRECHAT_GEMINI_API_KEY"); key != "" {
		c.LLM.GeminiAPIKey = key
	}

	if backend := os.Getenv("HIRECHAT_LEDGER_BACKEND"); backend != "" {
		c.Ledger.Backend = strings.ToLower(backend)
	}

	if dir := os.Getenv("HIRECHAT_DATA_DIR"); dir != "" {
		c.Ledger.DataDir = dir
	}

	if level := os.Getenv("HIRECHAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}

	if addr := os.Getenv("HIRECHAT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Conversation.SimulatedReplies = append([]string(nil), c.Conversation.SimulatedReplies...)
	return &clone
}

// String returns a JSON rendering of the config for debugging.
// SECURITY: Redacts API keys and tokens.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.LLM.GeminiAPIKey != "" {
		safe.LLM.GeminiAPIKey = "[REDACTED]"
	}
	if safe.Server.APIToken != "" {
		safe.Server.APIToken = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/config"
	"github.com/jeranaias/hirechat/internal/conversation"
	"github.com/jeranaias/hirechat/internal/intent"
	"github.com/jeranaias/hirechat/internal/ledger"
	"github.com/jeranaias/hirechat/internal/llm"
	"github.com/jeranaias/hirechat/internal/logging"
	"github.com/jeranaias/hirechat/internal/storage"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds the components one command invocation works with. Commands
// open only the parts they need; Close releases whatever was opened.
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
	level   zap.AtomicLevel

	model      llm.Client
	store      storage.Store
	ledger     *ledger.Ledger
	classifier *intent.Classifier
	sessions   *conversation.Manager
}

// newApp loads the config and builds the logger.
func newApp(flags *globalFlags) (*app, error) {
	path := flags.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	logger, level, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded", zap.String("path", path))

	return &app{cfg: cfg, cfgPath: path, logger: logger, level: level}, nil
}

// openModel builds the configured model client. Provider "none" leaves
// the client nil.
func (a *app) openModel(ctx context.Context) error {
	client, err := llm.New(ctx, a.cfg.LLM, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}
	a.model = client
	return nil
}

// openLedger opens the store and restores history into a new ledger.
// A store read failure keeps the seeded history and is logged.
func (a *app) openLedger(ctx context.Context) error {
	store, err := storage.Open(ctx, a.cfg.Ledger.Backend, a.cfg.DataDir())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", a.cfg.Ledger.Backend, err)
	}
	a.store = store

	a.ledger = ledger.New(ledger.Options{
		Store:        store,
		Seed:         a.cfg.Ledger.Seed,
		PersistQueue: a.cfg.Ledger.PersistQueue,
		Logger:       a.logger,
	})
	if err := a.ledger.Load(ctx); err != nil {
		a.logger.Warn("restoring history failed; continuing with seed", zap.Error(err))
	}
	return nil
}

// newClassifier builds the intent classifier, backed by the model when
// one was opened.
func (a *app) newClassifier() *intent.Classifier {
	policy := fallbackPolicy(a.cfg.Intent)
	opts := intent.Options{Policy: &policy, Logger: a.logger}
	if a.model != nil {
		opts.Completer = a.model
	}
	a.classifier = intent.New(opts)
	return a.classifier
}

// newManager builds the conversation manager. It requires openLedger.
func (a *app) newManager() *conversation.Manager {
	opts := conversation.Options{
		Ledger:       a.ledger,
		SystemPrompt: a.cfg.Conversation.SystemPrompt,
		Replies:      a.cfg.Conversation.SimulatedReplies,
		ReplyDelay:   a.cfg.Conversation.SimulatedReplyDelay,
		Logger:       a.logger,
	}
	if a.classifier != nil {
		opts.Classifier = a.classifier
	}
	if a.model != nil {
		opts.Streamer = a.model
	}
	a.sessions = conversation.NewManager(opts)
	return a.sessions
}

// Close unmounts sessions, drains pending snapshots, and closes the store.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush ledger: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

func fallbackPolicy(c config.IntentConfig) intent.FallbackPolicy {
	return intent.FallbackPolicy{
		Enabled:   c.FallbackEnabled,
		Threshold: c.FallbackThreshold,
		Timeout:   c.FallbackTimeout,
		Rate:      c.FallbackRate,
		Burst:     c.FallbackBurst,
	}
}

// conversationKey builds and validates a key from command flags.
func conversationKey(typ, participant string) (ledger.Key, error) {
	key := ledger.NewKey(typ, participant)
	return key, key.Validate()
}

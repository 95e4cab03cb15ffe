// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// =============================================================================
// CHECKPOINTER
// =============================================================================

// DefaultCheckpointSchedule retries failed snapshots every 30 seconds.
const DefaultCheckpointSchedule = "@every 30s"

// checkpointTimeout bounds one scheduled checkpoint run.
const checkpointTimeout = time.Minute

// Checkpointer periodically retries snapshots that failed to persist.
// Overlapping runs are skipped.
type Checkpointer struct {
	ledger   *Ledger
	schedule string
	logger   *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	runs    int
}

// NewCheckpointer validates schedule (standard five-field cron or a
// descriptor such as "@every 30s") and returns a stopped Checkpointer.
func NewCheckpointer(l *Ledger, schedule string, logger *zap.Logger) (*Checkpointer, error) {
	if schedule == "" {
		schedule = DefaultCheckpointSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid checkpoint schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkpointer{
		ledger:   l,
		schedule: schedule,
		logger:   logger.Named("checkpoint"),
	}, nil
}

// Start schedules checkpoints. Calling Start on a running Checkpointer is
// a no-op.
func (c *Checkpointer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	cl := cronLogger{c.logger.Sugar()}
	sched := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := sched.AddFunc(c.schedule, c.tick); err != nil {
		return fmt.Errorf("failed to schedule checkpoint: %w", err)
	}
	sched.Start()
	c.cron = sched
	c.running = true
	c.logger.Debug("checkpointer started", zap.String("schedule", c.schedule))
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish or ctx
// to be done.
func (c *Checkpointer) Stop(ctx context.Context) error {
	c.mu.Lock()
	sched := c.cron
	c.cron = nil
	c.running = false
	c.mu.Unlock()
	if sched == nil {
		return nil
	}

	select {
	case <-sched.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the Checkpointer and blocks until ctx is done, then stops it
// and performs one last checkpoint.
func (c *Checkpointer) Run(ctx context.Context) error {
	if err := c.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkpointTimeout)
	defer cancel()
	if err := c.Stop(stopCtx); err != nil {
		return err
	}
	if _, err := c.ledger.Checkpoint(stopCtx); err != nil {
		return fmt.Errorf("final checkpoint: %w", err)
	}
	return nil
}

// Runs reports how many scheduled checkpoints have completed.
func (c *Checkpointer) Runs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func (c *Checkpointer) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()

	n, err := c.ledger.Checkpoint(ctx)
	switch {
	case err != nil:
		c.logger.Warn("checkpoint failed", zap.Int("retried", n), zap.Error(err))
	case n > 0:
		c.logger.Info("checkpoint retried snapshots",
			zap.Int("retried", n), zap.Int("still_dirty", c.ledger.Dirty()))
	}

	c.mu.Lock()
	c.runs++
	c.mu.Unlock()
}

// cronLogger routes cron's logr-style output through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

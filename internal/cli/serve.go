// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/hirechat/internal/config"
	"github.com/jeranaias/hirechat/internal/ledger"
	"github.com/jeranaias/hirechat/internal/logging"
	"github.com/jeranaias/hirechat/internal/server"
)

// closeTimeout bounds the final flush of pending snapshots.
const closeTimeout = 10 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the intent and conversation API over HTTP.

The ledger checkpointer retries failed snapshots on the configured cron
schedule, and edits to the config file are applied without a restart
(log level, fallback policy, rate limit, simulated replies).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return runServe(ctx, a, flags.logLevel != "")
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// runServe runs the server, the checkpointer, and the config watcher until
// ctx is done or one of them fails.
func runServe(ctx context.Context, a *app, pinnedLevel bool) (err error) {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		err = errors.Join(err, a.Close(closeCtx))
	}()

	if err := a.openModel(ctx); err != nil {
		return err
	}
	if err := a.openLedger(ctx); err != nil {
		return err
	}
	classifier := a.newClassifier()
	sessions := a.newManager()

	srv := server.New(server.Options{
		Addr:       a.cfg.Server.Addr,
		Ledger:     a.ledger,
		Sessions:   sessions,
		Classifier: classifier,
		APIToken:   a.cfg.Server.APIToken,
		Rate:       a.cfg.Server.Rate,
		Burst:      a.cfg.Server.Burst,
		Version:    Version,
		Logger:     a.logger,
	})

	checkpointer, err := ledger.NewCheckpointer(a.ledger, a.cfg.Ledger.CheckpointSchedule, a.logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return checkpointer.Run(gctx)
	})
	if _, statErr := os.Stat(a.cfgPath); statErr == nil {
		w := &config.Watcher{
			Path:     a.cfgPath,
			OnChange: func(cfg *config.Config) { a.applyReload(cfg, srv, pinnedLevel) },
			Logger:   a.logger,
		}
		g.Go(func() error {
			return w.Run(gctx)
		})
	} else {
		a.logger.Info("config file not found; hot reload disabled", zap.String("path", a.cfgPath))
	}

	return g.Wait()
}

// applyReload hot-applies the settings that can change while serving.
// Everything else in cfg takes effect on the next start.
func (a *app) applyReload(cfg *config.Config, srv *server.Server, pinnedLevel bool) {
	if !pinnedLevel {
		if err := logging.SetLevel(a.level, cfg.Logging.Level); err != nil {
			a.logger.Warn("ignoring log level", zap.Error(err))
		}
	}
	if a.classifier != nil {
		a.classifier.SetFallbackPolicy(fallbackPolicy(cfg.Intent))
	}
	if srv != nil {
		srv.SetRateLimit(cfg.Server.Rate, cfg.Server.Burst)
	}
	if a.sessions != nil {
		a.sessions.SetReplies(cfg.Conversation.SimulatedReplies, cfg.Conversation.SimulatedReplyDelay)
	}
	a.cfg = cfg
}

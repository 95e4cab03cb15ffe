// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/conversation"
	"github.com/jeranaias/hirechat/internal/ledger"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// MaxUtteranceLength caps classified and sent text, in bytes.
	MaxUtteranceLength = 4096

	// MaxRequestBodySize caps request bodies (64KB).
	MaxRequestBodySize = 64 * 1024

	// shutdownTimeout bounds the graceful drain in Run.
	shutdownTimeout = 10 * time.Second

	// heartbeatInterval keeps idle event streams open through proxies.
	heartbeatInterval = 15 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr string

	Ledger     *ledger.Ledger
	Sessions   *conversation.Manager
	Classifier conversation.Classifier

	// APIToken enables bearer authentication on /v1 when set.
	APIToken string

	// Rate and Burst bound requests per client. Rate <= 0 disables it.
	Rate  float64
	Burst int

	Version string
	Logger  *zap.Logger
}

// Server is the HTTP adapter over the ledger and the classifier.
type Server struct {
	opts    Options
	engine  *gin.Engine
	limiter *RateLimiter
	logger  *zap.Logger
	started time.Time
}

// New builds a Server and its routes. Ledger, Sessions and Classifier are
// required.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		opts:    opts,
		limiter: NewRateLimiter(opts.Rate, opts.Burst),
		logger:  opts.Logger.Named("server"),
		started: time.Now(),
	}

	engine := gin.New()
	engine.ContextWithFallback = true
	if err := engine.SetTrustedProxies(trustedProxies); err != nil {
		s.logger.Warn("invalid trusted proxies", zap.Error(err))
	}
	engine.Use(RequestID(), Recovery(s.logger), Logger(s.logger), SecurityHeaders())
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody("not found"))
	})
	s.engine = engine
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// SetRateLimit changes the per-client rate at runtime.
func (s *Server) SetRateLimit(r float64, burst int) {
	s.limiter.SetLimit(r, burst)
	s.logger.Info("rate limit updated", zap.Float64("rate", r), zap.Int("burst", burst))
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. Open
// event streams are cancelled so the drain does not wait on them.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelRequests := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRequests()

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	cancelRequests()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/v1",
		Auth(s.opts.APIToken, s.logger),
		RateLimit(s.limiter, s.logger),
		bodyLimit(MaxRequestBodySize))

	v1.GET("/commands", s.handleCommands)
	v1.POST("/intent", s.handleIntent)
	v1.GET("/conversations", s.handleListConversations)

	conv := v1.Group("/conversations/:type/:participant")
	conv.GET("", s.handleGetConversation)
	conv.GET("/messages", s.handleGetMessages)
	conv.POST("/messages", s.handleSendMessage)
	conv.DELETE("/messages", s.handleClearMessages)
	conv.PUT("/active", s.handleSetActive)
	conv.GET("/events", s.handleEvents)
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

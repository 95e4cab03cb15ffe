// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/conversation"
	"github.com/jeranaias/hirechat/internal/intent"
	"github.com/jeranaias/hirechat/internal/ledger"
	"github.com/jeranaias/hirechat/internal/storage"
)

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// IntentRequest is the body of POST /v1/intent.
type IntentRequest struct {
	Utterance string `json:"utterance" binding:"required"`
}

// SendRequest is the body of POST .../messages.
type SendRequest struct {
	Content string `json:"content" binding:"required"`
	// Medium is "text" (default) or "audio".
	Medium string `json:"medium"`
	// Wait holds the response until the reply has been generated.
	Wait bool `json:"wait"`
}

// SendResponse reports what happened to a sent message.
type SendResponse struct {
	IsCommand bool            `json:"isCommand"`
	Intent    *intent.Result  `json:"intent,omitempty"`
	Message   *ledger.Message `json:"message,omitempty"`
	// Messages is the full history, set when the request asked to wait.
	Messages []ledger.Message `json:"messages,omitempty"`
}

// ActiveRequest is the body of PUT .../active.
type ActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	Uptime        string `json:"uptime"`
	Conversations int    `json:"conversations"`
	Dirty         int    `json:"dirty"`
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(c *gin.Context) {
	uptime := time.Since(s.started).Round(time.Second)
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.opts.Version,
		Uptime:        uptime.String(),
		Conversations: len(s.opts.Ledger.List()),
		Dirty:         s.opts.Ledger.Dirty(),
	})
}

func (s *Server) handleCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": intent.Catalogue()})
}

func (s *Server) handleIntent(c *gin.Context) {
	var req IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "utterance is required")
		return
	}
	if len(req.Utterance) > MaxUtteranceLength {
		s.badRequest(c, "utterance is too long")
		return
	}
	c.JSON(http.StatusOK, s.opts.Classifier.Classify(c.Request.Context(), req.Utterance))
}

func (s *Server) handleListConversations(c *gin.Context) {
	convs := s.opts.Ledger.List()
	metas := make([]storage.ConversationMeta, 0, len(convs))
	for _, conv := range convs {
		rec := conv.Record()
		metas = append(metas, rec.Meta())
	}
	c.JSON(http.StatusOK, gin.H{"conversations": metas})
}

func (s *Server) handleGetConversation(c *gin.Context) {
	key, ok := s.key(c)
	if !ok {
		return
	}
	conv, found := s.opts.Ledger.Get(key)
	if !found {
		c.JSON(http.StatusNotFound, errorBody("conversation not found"))
		return
	}
	conv.Messages = s.opts.Ledger.Messages(key)
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleGetMessages(c *gin.Context) {
	key, ok := s.key(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": s.opts.Ledger.Messages(key)})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	key, ok := s.key(c)
	if !ok {
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "content is required")
		return
	}
	if len(req.Content) > MaxUtteranceLength {
		s.badRequest(c, "content is too long")
		return
	}

	sess, err := s.opts.Sessions.Session(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := sess.SendMessage(c.Request.Context(), req.Content, ledger.Medium(strings.ToLower(req.Medium)))
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := SendResponse{IsCommand: res.IsCommand(), Message: res.Message}
	if s.opts.Classifier != nil {
		resp.Intent = &res.Intent
	}
	if res.IsCommand() {
		c.JSON(http.StatusOK, resp)
		return
	}
	if req.Wait {
		sess.Wait()
		resp.Messages = sess.Messages()
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleClearMessages(c *gin.Context) {
	key, ok := s.key(c)
	if !ok {
		return
	}
	sess, err := s.opts.Sessions.Session(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := sess.ClearConversation(); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetActive(c *gin.Context) {
	key, ok := s.key(c)
	if !ok {
		return
	}
	var req ActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "active is required")
		return
	}
	if err := s.opts.Ledger.SetActive(key, *req.Active); err != nil {
		s.fail(c, err)
		return
	}
	conv, _ := s.opts.Ledger.Get(key)
	c.JSON(http.StatusOK, conv)
}

// handleEvents streams the conversation as server-sent events: one
// "conversation" event with the current snapshot, then one per change.
// Slow clients skip intermediate snapshots.
func (s *Server) handleEvents(c *gin.Context) {
	key, ok := s.key(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	updates, err := s.opts.Ledger.Watch(ctx, key)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case conv, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("conversation", conv)
			c.Writer.Flush()
		case t := <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"timestamp": t.UTC().Format(time.RFC3339)})
			c.Writer.Flush()
		}
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) key(c *gin.Context) (ledger.Key, bool) {
	key := ledger.NewKey(c.Param("type"), c.Param("participant"))
	if err := key.Validate(); err != nil {
		s.badRequest(c, err.Error())
		return key, false
	}
	return key, true
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(msg))
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidKey),
		errors.Is(err, ledger.ErrInvalidRole),
		errors.Is(err, ledger.ErrInvalidMedium),
		errors.Is(err, conversation.ErrEmptyMessage):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrMessageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, conversation.ErrClosed), errors.Is(err, conversation.ErrNotMounted):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err), zap.String("request_id", requestID(c)))
		c.AbortWithStatusJSON(status, errorBody("internal server error"))
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody(err.Error()))
}

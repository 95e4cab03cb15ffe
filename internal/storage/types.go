// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/hirechat/internal/util"
)

// =============================================================================
// STORED CONVERSATION TYPE
// =============================================================================

// StoredConversation is the persisted form of one conversation.
type StoredConversation struct {
	ID            string          `json:"id" yaml:"id"`
	Type          string          `json:"type" yaml:"type"`
	ParticipantID string          `json:"participantId" yaml:"participantId"`
	Messages      []StoredMessage `json:"messages" yaml:"messages"`
	LastUpdated   time.Time       `json:"lastUpdated" yaml:"lastUpdated"`
	IsActive      bool            `json:"isActive" yaml:"isActive"`
}

// StoredMessage is the persisted form of one message.
type StoredMessage struct {
	ID        string         `json:"id" yaml:"id"`
	Content   string         `json:"content" yaml:"content"`
	Role      string         `json:"role" yaml:"role"` // "user", "assistant", "system"
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	SenderID  string         `json:"senderId" yaml:"senderId"`
	Medium    string         `json:"medium" yaml:"medium"` // "text", "audio"
	Metadata  StoredMetadata `json:"metadata" yaml:"metadata"`
}

// StoredMetadata links a message back to its conversation.
type StoredMetadata struct {
	ConversationType string `json:"conversationType" yaml:"conversationType"`
	ParticipantID    string `json:"participantId" yaml:"participantId"`
	AgentID          string `json:"agentId,omitempty" yaml:"agentId,omitempty"`
	CandidateID      string `json:"candidateId,omitempty" yaml:"candidateId,omitempty"`
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ParticipantID string    `json:"participantId"`
	LastUpdated   time.Time `json:"lastUpdated"`
	IsActive      bool      `json:"isActive"`
	MessageCount  int       `json:"messageCount"`
	Preview       string    `json:"preview"` // Last message truncated
}

// Meta summarizes the conversation for listings.
func (c *StoredConversation) Meta() ConversationMeta {
	return ConversationMeta{
		ID:            c.ID,
		Type:          c.Type,
		ParticipantID: c.ParticipantID,
		LastUpdated:   c.LastUpdated,
		IsActive:      c.IsActive,
		MessageCount:  len(c.Messages),
		Preview:       c.GetPreview(),
	}
}

// GetPreview returns the last non-empty message, single-lined and
// truncated to 80 runes.
func (c *StoredConversation) GetPreview() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Content != "" {
			return util.TruncateRunes(util.SingleLine(c.Messages[i].Content), 80)
		}
	}
	return ""
}

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportMarkdown renders the conversation as Markdown with role labels
// and timestamps.
func (c *StoredConversation) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + c.Type + " / " + c.ParticipantID + "\n\n")
	if !c.LastUpdated.IsZero() {
		sb.WriteString("Last updated: " + c.LastUpdated.Format(time.RFC3339) + "\n\n")
	}
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		var role string
		switch msg.Role {
		case "assistant":
			role = "**" + labelOr(msg.SenderID, "Assistant") + "**"
		case "system":
			role = "**System**"
		default:
			role = "**You**"
		}
		sb.WriteString(role + " (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON exports the conversation as pretty-printed JSON.
func (c *StoredConversation) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

func labelOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// sortMetas orders listings most recently updated first, then by id.
func sortMetas(metas []ConversationMeta) {
	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].LastUpdated.Equal(metas[j].LastUpdated) {
			return metas[i].LastUpdated.After(metas[j].LastUpdated)
		}
		return metas[i].ID < metas[j].ID
	})
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &StoreError{Message: "conversation not found"}

// ErrInvalidID is returned for ids that cannot be stored.
var ErrInvalidID = &StoreError{Message: "invalid conversation id"}

// StoreError represents a storage error. It can be compared using
// errors.Is and wraps its cause.
type StoreError struct {
	Message string
	ID      string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.ID != "" {
		msg += ": " + e.ID
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is support for comparing store errors by message.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

func notFound(id string) error {
	return &StoreError{Message: ErrConversationNotFound.Message, ID: id}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/hirechat/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrMessageNotFound is returned by UpdateMessage for an unknown id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidKey is returned for an empty type or participant, or a
	// type containing '-'.
	ErrInvalidKey = errors.New("invalid conversation key")

	// ErrInvalidRole is returned for a role other than user, assistant,
	// or system.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrInvalidMedium is returned for a medium other than text or audio.
	ErrInvalidMedium = errors.New("invalid message medium")
)

// =============================================================================
// KEYS
// =============================================================================

// Common conversation types.
const (
	TypeAgent     = "agent"
	TypeCandidate = "candidate"
)

// Key identifies a conversation by type and participant.
type Key struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participantId"`
}

// NewKey builds a Key from trimmed parts.
func NewKey(typ, participantID string) Key {
	return Key{Type: strings.TrimSpace(typ), ParticipantID: strings.TrimSpace(participantID)}
}

// ID returns the conversation id, "<type>-<participant>".
func (k Key) ID() string {
	return k.Type + "-" + k.ParticipantID
}

// Validate reports ErrInvalidKey for unusable keys. Types may not contain
// '-' so ids split back into keys unambiguously.
func (k Key) Validate() error {
	if k.Type == "" || k.ParticipantID == "" || strings.Contains(k.Type, "-") {
		return fmt.Errorf("%w: %q/%q", ErrInvalidKey, k.Type, k.ParticipantID)
	}
	return nil
}

// ParseID splits a conversation id back into its Key.
func ParseID(id string) (Key, error) {
	typ, participant, ok := strings.Cut(id, "-")
	k := Key{Type: typ, ParticipantID: participant}
	if !ok {
		return k, fmt.Errorf("%w: %q", ErrInvalidKey, id)
	}
	return k, k.Validate()
}

// =============================================================================
// MESSAGES
// =============================================================================

// Role is the author class of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Medium is how a message was produced or will be delivered.
type Medium string

const (
	MediumText  Medium = "text"
	MediumAudio Medium = "audio"
)

// Valid reports whether m is a known medium.
func (m Medium) Valid() bool {
	return m == MediumText || m == MediumAudio
}

// Metadata links a message to its conversation and optional counterpart.
type Metadata struct {
	ConversationType string `json:"conversationType"`
	ParticipantID    string `json:"participantId"`
	AgentID          string `json:"agentId,omitempty"`
	CandidateID      string `json:"candidateId,omitempty"`
}

// Message is one entry of a conversation. Content may grow in place while
// a reply streams; everything else is fixed at append.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  string    `json:"senderId"`
	Medium    Medium    `json:"medium"`
	Metadata  Metadata  `json:"metadata"`
}

// NewMessage is the caller-supplied part of an appended message. The
// ledger fills in id, timestamp, and the conversation metadata.
type NewMessage struct {
	Content  string
	Role     Role
	SenderID string
	// Medium defaults to MediumText.
	Medium      Medium
	AgentID     string
	CandidateID string
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Conversation is a snapshot of one conversation. Snapshots are copies;
// mutating one does not affect the ledger.
type Conversation struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ParticipantID string    `json:"participantId"`
	Messages      []Message `json:"messages"`
	LastUpdated   time.Time `json:"lastUpdated"`
	IsActive      bool      `json:"isActive"`
}

// Key returns the conversation's key.
func (c Conversation) Key() Key {
	return Key{Type: c.Type, ParticipantID: c.ParticipantID}
}

// clone deep-copies the message slice.
func (c Conversation) clone() Conversation {
	c.Messages = append([]Message(nil), c.Messages...)
	return c
}

// Record converts the snapshot to its persisted form.
func (c Conversation) Record() storage.StoredConversation {
	rec := storage.StoredConversation{
		ID:            c.ID,
		Type:          c.Type,
		ParticipantID: c.ParticipantID,
		LastUpdated:   c.LastUpdated,
		IsActive:      c.IsActive,
		Messages:      make([]storage.StoredMessage, len(c.Messages)),
	}
	for i, m := range c.Messages {
		rec.Messages[i] = storage.StoredMessage{
			ID:        m.ID,
			Content:   m.Content,
			Role:      string(m.Role),
			Timestamp: m.Timestamp,
			SenderID:  m.SenderID,
			Medium:    string(m.Medium),
			Metadata: storage.StoredMetadata{
				ConversationType: m.Metadata.ConversationType,
				ParticipantID:    m.Metadata.ParticipantID,
				AgentID:          m.Metadata.AgentID,
				CandidateID:      m.Metadata.CandidateID,
			},
		}
	}
	return rec
}

// fromRecord converts a persisted record back into a Conversation.
// Unknown roles and media are normalized rather than rejected so one bad
// entry cannot hide a whole history.
func fromRecord(rec storage.StoredConversation) Conversation {
	c := Conversation{
		ID:            rec.ID,
		Type:          rec.Type,
		ParticipantID: rec.ParticipantID,
		LastUpdated:   rec.LastUpdated,
		IsActive:      rec.IsActive,
		Messages:      make([]Message, 0, len(rec.Messages)),
	}
	for _, m := range rec.Messages {
		role := Role(m.Role)
		if !role.Valid() {
			role = RoleSystem
		}
		medium := Medium(m.Medium)
		if !medium.Valid() {
			medium = MediumText
		}
		md := Metadata{
			ConversationType: m.Metadata.ConversationType,
			ParticipantID:    m.Metadata.ParticipantID,
			AgentID:          m.Metadata.AgentID,
			CandidateID:      m.Metadata.CandidateID,
		}
		if md.ConversationType == "" {
			md.ConversationType = rec.Type
		}
		if md.ParticipantID == "" {
			md.ParticipantID = rec.ParticipantID
		}
		c.Messages = append(c.Messages, Message{
			ID:        m.ID,
			Content:   m.Content,
			Role:      role,
			Timestamp: m.Timestamp,
			SenderID:  m.SenderID,
			Medium:    medium,
			Metadata:  md,
		})
	}
	return c
}

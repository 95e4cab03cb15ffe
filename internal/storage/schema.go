// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema creates the conversation table. Messages are stored as a JSON
// array since records are always replaced whole.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id             TEXT PRIMARY KEY,
	type           TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	last_updated   TEXT NOT NULL,
	is_active      INTEGER NOT NULL DEFAULT 0,
	message_count  INTEGER NOT NULL DEFAULT 0,
	messages       TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(last_updated);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const upsertConversation = `
INSERT INTO conversations (id, type, participant_id, last_updated, is_active, message_count, messages)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	type = excluded.type,
	participant_id = excluded.participant_id,
	last_updated = excluded.last_updated,
	is_active = excluded.is_active,
	message_count = excluded.message_count,
	messages = excluded.messages`

const selectConversation = `
SELECT id, type, participant_id, last_updated, is_active, messages
FROM conversations`

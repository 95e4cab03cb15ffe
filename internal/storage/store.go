// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"path/filepath"
)

// Store persists conversation snapshots keyed by conversation id.
// Implementations are safe for concurrent use.
type Store interface {
	// Save replaces the stored record for conv.ID.
	Save(ctx context.Context, conv *StoredConversation) error

	// Load returns the record for id or ErrConversationNotFound.
	Load(ctx context.Context, id string) (*StoredConversation, error)

	// LoadAll returns every stored record, ordered by id.
	LoadAll(ctx context.Context) ([]StoredConversation, error)

	// List returns listing metadata, most recently updated first.
	List(ctx context.Context) ([]ConversationMeta, error)

	// Delete removes the record for id or returns ErrConversationNotFound.
	Delete(ctx context.Context, id string) error

	Close() error
}

// Open creates the Store for backend ("json", "sqlite", or "memory")
// rooted at dataDir.
func Open(ctx context.Context, backend, dataDir string) (Store, error) {
	switch backend {
	case "json", "":
		return NewFileStore(filepath.Join(dataDir, "conversations"))
	case "sqlite":
		return NewSQLiteStore(ctx, filepath.Join(dataDir, "hirechat.db"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func validID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	return nil
}

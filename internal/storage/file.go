// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeranaias/hirechat/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps one JSON file per conversation.
type FileStore struct {
	// BaseDir is the directory for storing conversations
	BaseDir string
}

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{BaseDir: baseDir}, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, conv *StoredConversation) error {
	if err := validID(conv.ID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return &StoreError{Message: "failed to encode conversation", ID: conv.ID, Cause: err}
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(s.filePath(conv.ID), data, 0o600); err != nil {
		return &StoreError{Message: "failed to write conversation", ID: conv.ID, Cause: err}
	}
	return nil
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, id string) (*StoredConversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readFile(s.filePath(id), id)
}

func (s *FileStore) readFile(path, id string) (*StoredConversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(id)
		}
		return nil, &StoreError{Message: "failed to read conversation", ID: id, Cause: err}
	}

	var conv StoredConversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, &StoreError{Message: "corrupt conversation file", ID: id, Cause: err}
	}
	return &conv, nil
}

// LoadAll implements Store. Corrupt files are skipped.
func (s *FileStore) LoadAll(ctx context.Context) ([]StoredConversation, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var convs []StoredConversation
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		conv, err := s.readFile(filepath.Join(s.BaseDir, entry.Name()), entry.Name())
		if err != nil {
			continue // Skip corrupted files
		}
		convs = append(convs, *conv)
	}

	sort.Slice(convs, func(i, j int) bool { return convs[i].ID < convs[j].ID })
	return convs, nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]ConversationMeta, error) {
	convs, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	metas := make([]ConversationMeta, 0, len(convs))
	for i := range convs {
		metas = append(metas, convs[i].Meta())
	}
	sortMetas(metas)
	return metas, nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.filePath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound(id)
		}
		return &StoreError{Message: "failed to delete conversation", ID: id, Cause: err}
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

// filePath returns the file path for a conversation ID.
func (s *FileStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, sanitizeFilename(id)+".json")
}

// sanitizeFilename maps an id onto a safe, unique file name. Bytes outside
// [A-Za-z0-9_-] are written as %XX.
func sanitizeFilename(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

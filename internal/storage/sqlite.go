// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps every conversation in one SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', ?)",
		strconv.Itoa(SchemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, conv *StoredConversation) error {
	if err := validID(conv.ID); err != nil {
		return err
	}

	messages := conv.Messages
	if messages == nil {
		messages = []StoredMessage{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return &StoreError{Message: "failed to encode conversation", ID: conv.ID, Cause: err}
	}

	_, err = s.db.ExecContext(ctx, upsertConversation,
		conv.ID, conv.Type, conv.ParticipantID,
		conv.LastUpdated.UTC().Format(time.RFC3339Nano),
		conv.IsActive, len(conv.Messages), string(data))
	if err != nil {
		return &StoreError{Message: "failed to write conversation", ID: conv.ID, Cause: err}
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*StoredConversation, error) {
	row := s.db.QueryRowContext(ctx, selectConversation+" WHERE id = ?", id)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, &StoreError{Message: "failed to read conversation", ID: id, Cause: err}
	}
	return conv, nil
}

// LoadAll implements Store.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]StoredConversation, error) {
	rows, err := s.db.QueryContext(ctx, selectConversation+" ORDER BY id")
	if err != nil {
		return nil, &StoreError{Message: "failed to query conversations", Cause: err}
	}
	defer rows.Close()

	var convs []StoredConversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, &StoreError{Message: "failed to read conversation", Cause: err}
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]ConversationMeta, error) {
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
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return &StoreError{Message: "failed to delete conversation", ID: id, Cause: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*StoredConversation, error) {
	var (
		conv     StoredConversation
		updated  string
		messages string
	)
	if err := row.Scan(&conv.ID, &conv.Type, &conv.ParticipantID, &updated, &conv.IsActive, &messages); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return nil, fmt.Errorf("bad last_updated %q: %w", updated, err)
	}
	conv.LastUpdated = t

	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return nil, fmt.Errorf("bad messages: %w", err)
	}
	return &conv, nil
}

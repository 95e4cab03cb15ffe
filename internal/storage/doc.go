// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable snapshots of conversation ledgers.
//
// Every backend stores one keyed record per conversation id and replaces it
// whole on each save. The ledger reads every record back on startup.
//
// # Key Types
//
//   - Store: storage interface implemented by every backend
//   - FileStore: one JSON file per conversation (default)
//   - SQLiteStore: single database file using the pure Go SQLite driver
//   - MemoryStore: in-process store for tests and ephemeral runs
//   - StoredConversation: serializable conversation record
//
// # Usage
//
//	store, err := storage.Open(ctx, "json", dataDir)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Save(ctx, &storage.StoredConversation{ID: "agent-darlene", ...})
//	all, err := store.LoadAll(ctx)
//
// # Storage Location
//
// FileStore writes <dataDir>/conversations/<id>.json; SQLiteStore writes
// <dataDir>/hirechat.db.
package storage

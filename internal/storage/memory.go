// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in process memory. Records are deep-copied on
// the way in and out.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]StoredConversation

	failSaves error
	saves     int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]StoredConversation)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, conv *StoredConversation) error {
	if err := validID(conv.ID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves != nil {
		return &StoreError{Message: "failed to write conversation", ID: conv.ID, Cause: s.failSaves}
	}
	s.convs[conv.ID] = cloneConversation(*conv)
	s.saves++
	return nil
}

// SetFailSaves makes every Save fail with err until reset with nil.
func (s *MemoryStore) SetFailSaves(err error) {
	s.mu.Lock()
	s.failSaves = err
	s.mu.Unlock()
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, id string) (*StoredConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return nil, notFound(id)
	}
	c := cloneConversation(conv)
	return &c, nil
}

// LoadAll implements Store.
func (s *MemoryStore) LoadAll(ctx context.Context) ([]StoredConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	convs := make([]StoredConversation, 0, len(s.convs))
	for _, c := range s.convs {
		convs = append(convs, cloneConversation(c))
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].ID < convs[j].ID })
	return convs, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]ConversationMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metas := make([]ConversationMeta, 0, len(s.convs))
	for _, c := range s.convs {
		metas = append(metas, c.Meta())
	}
	sortMetas(metas)
	return metas, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[id]; !ok {
		return notFound(id)
	}
	delete(s.convs, id)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

func cloneConversation(c StoredConversation) StoredConversation {
	c.Messages = append([]StoredMessage(nil), c.Messages...)
	return c
}

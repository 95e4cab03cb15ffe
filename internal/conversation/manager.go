// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/ledger"
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager keeps one mounted Session per conversation key.
type Manager struct {
	mu       sync.Mutex
	opts     Options
	sessions map[string]*Session
	closed   bool
	logger   *zap.Logger
}

// NewManager creates a Manager whose sessions share opts.
func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts:     opts,
		sessions: make(map[string]*Session),
		logger:   opts.Logger.Named("conversation"),
	}
}

// Session returns the mounted Session for key, mounting it on first use.
func (m *Manager) Session(ctx context.Context, key ledger.Key) (*Session, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if s, ok := m.sessions[key.ID()]; ok {
		return s, nil
	}

	s := NewSession(key, m.opts)
	if _, err := s.Mount(ctx); err != nil {
		return nil, err
	}
	m.sessions[key.ID()] = s
	return s, nil
}

// SetReplies swaps the simulated reply pool and delay for sessions
// mounted from now on. An empty pool keeps the current one.
func (m *Manager) SetReplies(replies []string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(replies) > 0 {
		m.opts.Replies = append([]string(nil), replies...)
	}
	if delay >= 0 {
		m.opts.ReplyDelay = delay
	}
}

// Unmount tears down key's session if one is mounted.
func (m *Manager) Unmount(key ledger.Key) error {
	m.mu.Lock()
	s, ok := m.sessions[key.ID()]
	delete(m.sessions, key.ID())
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Unmount()
}

// Mounted returns the keys of mounted sessions ordered by id.
func (m *Manager) Mounted() []ledger.Key {
	m.mu.Lock()
	keys := make([]ledger.Key, 0, len(m.sessions))
	for _, s := range m.sessions {
		keys = append(keys, s.Key())
	}
	m.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID() < keys[j].ID() })
	return keys
}

// Wait blocks until every mounted session is idle.
func (m *Manager) Wait() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Wait()
	}
}

// Close unmounts every session. Later calls to Session fail with
// ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Unmount(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(sessions) > 0 {
		m.logger.Debug("sessions unmounted", zap.Int("count", len(sessions)))
	}
	return errors.Join(errs...)
}

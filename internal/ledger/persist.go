// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/storage"
)

// =============================================================================
// PERSISTER
// =============================================================================

// DefaultPersistQueue is the default number of conversations that may have
// a snapshot waiting to be written.
const DefaultPersistQueue = 64

// saveTimeout bounds a single snapshot write.
const saveTimeout = 10 * time.Second

// persister writes snapshots on one goroutine. Pending snapshots coalesce
// per conversation, latest wins. Failed writes mark the conversation dirty
// for the checkpointer to retry.
type persister struct {
	store    storage.Store
	logger   *zap.Logger
	capacity int

	mu      sync.Mutex
	pending map[string]storage.StoredConversation
	order   []string
	dirty   map[string]struct{}
	stopped bool

	wake  chan struct{}
	flush chan chan struct{}
	stop  chan struct{}
	done  chan struct{}
}

func newPersister(store storage.Store, capacity int, logger *zap.Logger) *persister {
	if capacity <= 0 {
		capacity = DefaultPersistQueue
	}
	p := &persister{
		store:    store,
		logger:   logger,
		capacity: capacity,
		pending:  make(map[string]storage.StoredConversation),
		dirty:    make(map[string]struct{}),
		wake:     make(chan struct{}, 1),
		flush:    make(chan chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// enqueue schedules rec for writing. It never blocks.
func (p *persister) enqueue(rec storage.StoredConversation) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.logger.Debug("snapshot after close dropped", zap.String("conversation", rec.ID))
		return
	}
	if _, queued := p.pending[rec.ID]; !queued {
		if len(p.order) >= p.capacity {
			p.dirty[rec.ID] = struct{}{}
			p.mu.Unlock()
			p.logger.Warn("persist queue full, deferring snapshot to checkpoint",
				zap.String("conversation", rec.ID), zap.Int("capacity", p.capacity))
			return
		}
		p.order = append(p.order, rec.ID)
	}
	p.pending[rec.ID] = rec
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case reply := <-p.flush:
			p.drain()
			close(reply)
		case <-p.stop:
			p.drain()
			return
		}
	}
}

// drain writes everything pending at call time and anything enqueued while
// it runs.
func (p *persister) drain() {
	for {
		p.mu.Lock()
		if len(p.order) == 0 {
			p.mu.Unlock()
			return
		}
		id := p.order[0]
		p.order = p.order[1:]
		rec := p.pending[id]
		delete(p.pending, id)
		p.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := p.store.Save(ctx, &rec)
		cancel()

		p.mu.Lock()
		if err != nil {
			p.dirty[id] = struct{}{}
		} else {
			delete(p.dirty, id)
		}
		p.mu.Unlock()

		if err != nil {
			p.logger.Warn("snapshot failed", zap.String("conversation", id), zap.Error(err))
		}
	}
}

// Flush blocks until every snapshot enqueued before the call has been
// attempted.
func (p *persister) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case p.flush <- reply:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// takeDirty returns and clears the dirty set, sorted.
func (p *persister) takeDirty() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.dirty))
	for id := range p.dirty {
		ids = append(ids, id)
	}
	clear(p.dirty)
	sort.Strings(ids)
	return ids
}

// Dirty reports how many conversations have unsaved changes.
func (p *persister) Dirty() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dirty)
}

// Close drains pending snapshots and stops the goroutine. It is safe to
// call more than once.
func (p *persister) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stop)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

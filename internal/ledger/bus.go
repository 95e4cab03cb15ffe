// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind says what changed.
type EventKind int

const (
	// EventAppended: a message was added.
	EventAppended EventKind = iota
	// EventUpdated: a message's content changed.
	EventUpdated
	// EventCleared: all messages were removed.
	EventCleared
	// EventActivity: the active flag changed.
	EventActivity
)

var eventKindNames = [...]string{"appended", "updated", "cleared", "activity"}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event describes one change to a conversation. Conversation is a snapshot
// taken right after the change.
type Event struct {
	Kind         EventKind
	Conversation Conversation
	// MessageID is set for EventAppended and EventUpdated.
	MessageID string
}

// Listener receives events. Listeners run on the mutating goroutine while
// the conversation's writer lock is held: they may read the ledger but must
// not mutate the conversation they were notified about.
type Listener func(Event)

// =============================================================================
// BUS
// =============================================================================

// Bus fans events out to global and per-conversation listeners. Delivery
// is synchronous, in subscription order, global listeners first. A
// panicking listener is recovered and logged.
type Bus struct {
	mu     sync.RWMutex
	next   uint64
	global map[uint64]Listener
	byConv map[string]map[uint64]Listener
	logger *zap.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		global: make(map[uint64]Listener),
		byConv: make(map[string]map[uint64]Listener),
		logger: logger,
	}
}

// Subscribe registers l for every conversation.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.global[id] = l
	return b.once(func() { delete(b.global, id) })
}

// SubscribeConversation registers l for one conversation id.
func (b *Bus) SubscribeConversation(convID string, l Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	subs := b.byConv[convID]
	if subs == nil {
		subs = make(map[uint64]Listener)
		b.byConv[convID] = subs
	}
	subs[id] = l
	return b.once(func() {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.byConv, convID)
		}
	})
}

func (b *Bus) once(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			remove()
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to matching listeners. Listeners are snapshotted
// first so they may subscribe or unsubscribe while being called.
func (b *Bus) Publish(ev Event) {
	for _, l := range b.listeners(ev.Conversation.ID) {
		b.deliver(l, ev)
	}
}

type entry struct {
	id uint64
	l  Listener
}

func (b *Bus) listeners(convID string) []Listener {
	b.mu.RLock()
	global := make([]entry, 0, len(b.global))
	for id, l := range b.global {
		global = append(global, entry{id, l})
	}
	scoped := make([]entry, 0, len(b.byConv[convID]))
	for id, l := range b.byConv[convID] {
		scoped = append(scoped, entry{id, l})
	}
	b.mu.RUnlock()

	byID := func(s []entry) {
		sort.Slice(s, func(i, j int) bool { return s[i].id < s[j].id })
	}
	byID(global)
	byID(scoped)

	out := make([]Listener, 0, len(global)+len(scoped))
	for _, e := range global {
		out = append(out, e.l)
	}
	for _, e := range scoped {
		out = append(out, e.l)
	}
	return out
}

func (b *Bus) deliver(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("ledger listener panicked",
				zap.String("conversation", ev.Conversation.ID),
				zap.Stringer("event", ev.Kind),
				zap.Any("panic", r))
		}
	}()
	l(ev)
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.global)
	for _, subs := range b.byConv {
		n += len(subs)
	}
	return n
}

// =============================================================================
// WATCH
// =============================================================================

// Watch adapts a conversation subscription to a channel that always holds
// the latest snapshot: slow readers skip intermediate states but never see
// them out of order. initial, if non-nil, is sent first. The channel is
// closed after ctx is done.
func (b *Bus) Watch(ctx context.Context, convID string, initial *Conversation) <-chan Conversation {
	ch := make(chan Conversation, 1)
	var (
		mu     sync.Mutex
		closed bool
	)
	offer := func(c Conversation) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- c:
			return
		default:
		}
		// Replace the stale snapshot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}

	if initial != nil {
		offer(initial.clone())
	}
	unsubscribe := b.SubscribeConversation(convID, func(ev Event) { offer(ev.Conversation) })

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}

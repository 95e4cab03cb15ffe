// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/storage"
)

// =============================================================================
// LEDGER
// =============================================================================

// Options configures a Ledger.
type Options struct {
	// Store persists snapshots. Nil keeps history in memory only.
	Store storage.Store

	// Seed loads the bundled example histories in Load.
	Seed bool

	// PersistQueue caps conversations waiting to be written.
	PersistQueue int

	Logger *zap.Logger

	// Clock and NewID are overridable for tests.
	Clock func() time.Time
	NewID func() string
}

// Ledger is the authoritative store of conversation history. It is safe
// for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	convs    map[string]*conversation
	msgIndex map[string]string // message id -> conversation id

	bus       *Bus
	persister *persister
	seed      bool
	clock     func() time.Time
	newID     func() string
	logger    *zap.Logger
}

// conversation pairs state with its writer lock. The writer lock
// serializes mutation and notification; data is guarded by Ledger.mu.
type conversation struct {
	writer sync.Mutex
	data   Conversation
}

// New creates a Ledger. Call Load to restore history and Close to flush.
func New(opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ledger")

	l := &Ledger{
		convs:    make(map[string]*conversation),
		msgIndex: make(map[string]string),
		bus:      NewBus(logger),
		seed:     opts.Seed,
		clock:    opts.Clock,
		newID:    opts.NewID,
		logger:   logger,
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.newID == nil {
		l.newID = uuid.NewString
	}
	if opts.Store != nil {
		l.persister = newPersister(opts.Store, opts.PersistQueue, logger)
	}
	return l
}

// Bus returns the ledger's event bus.
func (l *Ledger) Bus() *Bus {
	return l.bus
}

// Subscribe registers a listener for every conversation.
func (l *Ledger) Subscribe(fn Listener) (unsubscribe func()) {
	return l.bus.Subscribe(fn)
}

// SubscribeConversation registers a listener for one conversation id.
func (l *Ledger) SubscribeConversation(convID string, fn Listener) (unsubscribe func()) {
	return l.bus.SubscribeConversation(convID, fn)
}

// Watch streams the latest snapshot of key's conversation, starting with
// its current state, until ctx is done.
func (l *Ledger) Watch(ctx context.Context, key Key) (<-chan Conversation, error) {
	c, err := l.conversation(key)
	if err != nil {
		return nil, err
	}

	// Holding the writer lock means no change can slip between the
	// initial snapshot and the subscription.
	c.writer.Lock()
	defer c.writer.Unlock()
	l.mu.RLock()
	snap := c.data.clone()
	l.mu.RUnlock()
	return l.bus.Watch(ctx, snap.ID, &snap), nil
}

// =============================================================================
// READS
// =============================================================================

// GetOrCreate returns the conversation for key, creating an empty one on
// first access. Repeated calls return the same conversation.
func (l *Ledger) GetOrCreate(key Key) (Conversation, error) {
	c, err := l.conversation(key)
	if err != nil {
		return Conversation{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return c.data.clone(), nil
}

// Get returns the conversation for key without creating it.
func (l *Ledger) Get(key Key) (Conversation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.convs[key.ID()]
	if !ok {
		return Conversation{}, false
	}
	return c.data.clone(), true
}

// Messages returns a copy of key's messages sorted by timestamp. Unknown
// conversations yield an empty slice.
func (l *Ledger) Messages(key Key) []Message {
	l.mu.RLock()
	c, ok := l.convs[key.ID()]
	var msgs []Message
	if ok {
		msgs = append([]Message(nil), c.data.Messages...)
	}
	l.mu.RUnlock()

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs
}

// List returns snapshots of every conversation ordered by id.
func (l *Ledger) List() []Conversation {
	l.mu.RLock()
	out := make([]Conversation, 0, len(l.convs))
	for _, c := range l.convs {
		out = append(out, c.data.clone())
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// WRITES
// =============================================================================

// Append adds a message to key's conversation, marks it active, notifies
// subscribers, and schedules a snapshot. The timestamp is clamped so it
// never precedes the conversation's previous message.
func (l *Ledger) Append(key Key, in NewMessage) (Message, error) {
	if !in.Role.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, in.Role)
	}
	if in.Medium == "" {
		in.Medium = MediumText
	}
	if !in.Medium.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidMedium, in.Medium)
	}

	c, err := l.conversation(key)
	if err != nil {
		return Message{}, err
	}

	var msg Message
	l.mutate(c, func(data *Conversation) (Event, bool) {
		ts := l.clock()
		if n := len(data.Messages); n > 0 && ts.Before(data.Messages[n-1].Timestamp) {
			ts = data.Messages[n-1].Timestamp
		}
		msg = Message{
			ID:        l.newID(),
			Content:   in.Content,
			Role:      in.Role,
			Timestamp: ts,
			SenderID:  in.SenderID,
			Medium:    in.Medium,
			Metadata: Metadata{
				ConversationType: data.Type,
				ParticipantID:    data.ParticipantID,
				AgentID:          in.AgentID,
				CandidateID:      in.CandidateID,
			},
		}
		data.Messages = append(data.Messages, msg)
		data.LastUpdated = later(ts, data.LastUpdated)
		data.IsActive = true
		l.msgIndex[msg.ID] = data.ID
		return Event{Kind: EventAppended, MessageID: msg.ID}, true
	})
	return msg, nil
}

// UpdateMessage replaces the content of the message with id, wherever it
// lives, and republishes its conversation.
func (l *Ledger) UpdateMessage(id, content string) (Message, error) {
	l.mu.RLock()
	convID, ok := l.msgIndex[id]
	c := l.convs[convID]
	l.mu.RUnlock()
	if !ok || c == nil {
		return Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	var (
		msg   Message
		found bool
	)
	l.mutate(c, func(data *Conversation) (Event, bool) {
		// Re-check under the writer lock: a Clear may have won the race.
		for i := range data.Messages {
			if data.Messages[i].ID == id {
				data.Messages[i].Content = content
				msg = data.Messages[i]
				found = true
				break
			}
		}
		if !found {
			return Event{}, false
		}
		data.LastUpdated = later(l.clock(), data.LastUpdated)
		return Event{Kind: EventUpdated, MessageID: id}, true
	})
	if !found {
		return Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	return msg, nil
}

// Clear removes every message from key's conversation. The conversation
// itself is kept.
func (l *Ledger) Clear(key Key) error {
	c, err := l.conversation(key)
	if err != nil {
		return err
	}
	l.mutate(c, func(data *Conversation) (Event, bool) {
		for _, m := range data.Messages {
			delete(l.msgIndex, m.ID)
		}
		data.Messages = nil
		data.LastUpdated = later(l.clock(), data.LastUpdated)
		return Event{Kind: EventCleared}, true
	})
	return nil
}

// SetActive sets key's active flag and notifies subscribers.
func (l *Ledger) SetActive(key Key, active bool) error {
	c, err := l.conversation(key)
	if err != nil {
		return err
	}
	l.mutate(c, func(data *Conversation) (Event, bool) {
		data.IsActive = active
		data.LastUpdated = later(l.clock(), data.LastUpdated)
		return Event{Kind: EventActivity}, true
	})
	return nil
}

// mutate runs fn under c's writer lock and the state lock. When fn reports
// a change, the event is published with a fresh snapshot and the snapshot
// is scheduled for persistence, both before the writer lock is released.
func (l *Ledger) mutate(c *conversation, fn func(*Conversation) (Event, bool)) {
	c.writer.Lock()
	defer c.writer.Unlock()

	l.mu.Lock()
	ev, changed := fn(&c.data)
	snap := c.data.clone()
	l.mu.Unlock()

	if !changed {
		return
	}
	ev.Conversation = snap
	l.bus.Publish(ev)
	if l.persister != nil {
		l.persister.enqueue(snap.Record())
	}
}

// conversation returns the state for key, creating it if needed.
func (l *Ledger) conversation(key Key) (*conversation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	id := key.ID()

	l.mu.RLock()
	c, ok := l.convs[id]
	l.mu.RUnlock()
	if ok {
		return c, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.convs[id]; ok {
		return c, nil
	}
	c = &conversation{data: Conversation{
		ID:            id,
		Type:          key.Type,
		ParticipantID: key.ParticipantID,
		LastUpdated:   l.clock(),
	}}
	l.convs[id] = c
	return c, nil
}

func later(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Load installs the bundled seed (when enabled) and then every persisted
// record, persisted records replacing seeded ones by id. It is meant to be
// called once, before the ledger is shared. A store failure leaves the
// seeded state in place and is returned.
func (l *Ledger) Load(ctx context.Context) error {
	var records []storage.StoredConversation
	if l.seed {
		seeded, err := SeedRecords()
		if err != nil {
			return fmt.Errorf("failed to decode seed: %w", err)
		}
		records = append(records, seeded...)
	}

	var loadErr error
	if l.persister != nil {
		persisted, err := l.persister.store.LoadAll(ctx)
		if err != nil {
			loadErr = fmt.Errorf("failed to load snapshots: %w", err)
		}
		records = append(records, persisted...)
	}

	l.mu.Lock()
	installed := 0
	for _, rec := range records {
		conv := fromRecord(rec)
		key := conv.Key()
		if key.Validate() != nil || key.ID() != conv.ID {
			l.logger.Warn("skipping record with invalid key", zap.String("conversation", rec.ID))
			continue
		}
		if old, ok := l.convs[conv.ID]; ok {
			for _, m := range old.data.Messages {
				delete(l.msgIndex, m.ID)
			}
		}
		for _, m := range conv.Messages {
			l.msgIndex[m.ID] = conv.ID
		}
		l.convs[conv.ID] = &conversation{data: conv}
		installed++
	}
	l.mu.Unlock()

	l.logger.Info("ledger loaded",
		zap.Int("conversations", installed),
		zap.Bool("seed", l.seed),
		zap.Bool("persistent", l.persister != nil))
	return loadErr
}

// Checkpoint re-queues snapshots of conversations whose last write failed
// and waits for them to be attempted. It returns how many were retried.
func (l *Ledger) Checkpoint(ctx context.Context) (int, error) {
	if l.persister == nil {
		return 0, nil
	}
	ids := l.persister.takeDirty()
	for _, id := range ids {
		l.mu.RLock()
		c, ok := l.convs[id]
		var rec storage.StoredConversation
		if ok {
			rec = c.data.Record()
		}
		l.mu.RUnlock()
		if ok {
			l.persister.enqueue(rec)
		}
	}
	if err := l.persister.Flush(ctx); err != nil {
		return len(ids), err
	}
	return len(ids), nil
}

// Dirty reports how many conversations have unsaved changes.
func (l *Ledger) Dirty() int {
	if l.persister == nil {
		return 0
	}
	return l.persister.Dirty()
}

// Flush waits until every snapshot scheduled so far has been attempted.
func (l *Ledger) Flush(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}
	return l.persister.Flush(ctx)
}

// Close drains pending snapshots and stops the persister. The ledger stays
// readable and writable in memory afterwards.
func (l *Ledger) Close(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}
	return l.persister.Close(ctx)
}

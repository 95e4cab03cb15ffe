// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ledger is the source of truth for conversation history.
//
// A Ledger holds one Conversation per (type, participant) key. Producers
// (typed input, streamed model output, simulated replies) append and update
// messages concurrently; each conversation has a single writer lock so
// mutations and their notifications happen in one order, and timestamps
// never go backwards within a conversation.
//
// Subscribers receive typed Events on a Bus, either for every conversation
// or for one conversation id. Snapshots are persisted asynchronously through
// a storage.Store; a failed save never blocks delivery and is retried by the
// Checkpointer.
//
// # Key Types
//
//   - Ledger: the conversation store, constructed once and passed around
//   - Key: (type, participant) pair identifying a conversation
//   - Message, Conversation: value snapshots handed to callers
//   - Bus, Event: publish/subscribe of ledger changes
//   - Checkpointer: cron-driven retry of failed snapshots
//
// # Usage
//
//	l := ledger.New(ledger.Options{Store: store, Logger: logger, Seed: true})
//	if err := l.Load(ctx); err != nil {
//	    logger.Warn("restore failed", zap.Error(err))
//	}
//	defer l.Close(ctx)
//
//	unsubscribe := l.SubscribeConversation(key.ID(), func(ev ledger.Event) {
//	    render(ev.Conversation)
//	})
//	defer unsubscribe()
//
//	msg, err := l.Append(key, ledger.NewMessage{Content: "hi", Role: ledger.RoleUser})
package ledger

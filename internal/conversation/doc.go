// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation binds live reply generation to the ledger.
//
// A Session serves one conversation. Sending appends the user's message
// right away, then produces the other side's reply in the background:
// agent conversations stream from a model, candidate conversations get a
// delayed canned reply. Utterances the intent classifier recognizes as
// commands are handed back to the caller instead.
//
// # Key Types
//
//   - Session: send, clear, and activate one conversation
//   - Manager: one mounted Session per conversation key
//   - Streamer: the model side of a reply (llm.Client satisfies it)
//
// # Usage
//
//	mgr := conversation.NewManager(conversation.Options{
//	    Ledger:     l,
//	    Classifier: classifier,
//	    Streamer:   client,
//	})
//	defer mgr.Close()
//
//	sess, err := mgr.Session(ctx, ledger.NewKey(ledger.TypeAgent, "darlene"))
//	res, err := sess.SendMessage(ctx, "how many job posts do I have left?", ledger.MediumText)
//	if res.IsCommand() {
//	    navigate(res.Intent)
//	}
//	sess.Wait()
package conversation

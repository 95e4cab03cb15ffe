// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package intent classifies free-text utterances into app commands.
//
// An utterance becomes a navigation command, an agent switch, a
// parameterized "view job" request, or nothing (the caller then hands it to
// a generative model as ordinary chat).
//
// # Key Types
//
//   - Command: closed set of canonical commands, with phrase tables attached
//   - Classifier: tiered decision pipeline with a model fallback
//   - Result: classification outcome, JSON-encoded as {isCommand, command, confidence, extractedParameter}
//   - Extractor: swappable job-title and agent-name heuristics
//   - AgentRegistry / Resolver: agent roster and name resolution
//
// # Pipeline
//
// Cheap deterministic checks run first so the common case stays fast and
// works offline. The model is consulted only when every rule is
// inconclusive:
//
//	length gate -> fuzzy navigation -> keywords -> job title -> agent switch -> model
//
// # Usage
//
//	c := intent.New(intent.Options{Completer: llmClient, Logger: log})
//	res := c.Classify(ctx, "Show me saved jobs")
//	if res.IsCommand {
//	    navigate(res.Command, res.Parameter)
//	}
package intent

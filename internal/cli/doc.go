// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the hirechat command line.
//
// Commands are built with cobra and share one wiring path (newApp) that
// turns a loaded config into a logger, a ledger over the configured
// store, an optional model client, the intent classifier, and a
// conversation manager.
//
// # Key Types
//
//   - app: the wired components for one command invocation
//   - chatREPL: the interactive line loop behind "hirechat chat"
//
// # Commands
//
//   - serve: HTTP API, ledger checkpointer, and config watcher
//   - classify: print the intent Result for an utterance as JSON
//   - chat: interactive conversation with an agent or candidate
//   - history: list conversations or print one conversation's messages
//   - clear: empty a conversation's history
//   - commands: list the navigation command catalogue
//   - version: print build information
//
// # Usage
//
//	func main() {
//		os.Exit(cli.Execute())
//	}
package cli

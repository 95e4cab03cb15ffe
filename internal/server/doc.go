// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the intent classifier and the conversation ledger
// over HTTP.
//
// # Endpoints
//
//   - GET    /health                                         - Health check
//   - GET    /v1/commands                                    - Command catalogue
//   - POST   /v1/intent                                      - Classify an utterance
//   - GET    /v1/conversations                               - List conversations
//   - GET    /v1/conversations/:type/:participant            - One conversation
//   - GET    /v1/conversations/:type/:participant/messages   - Message history
//   - POST   /v1/conversations/:type/:participant/messages   - Send a message
//   - DELETE /v1/conversations/:type/:participant/messages   - Clear history
//   - PUT    /v1/conversations/:type/:participant/active     - Set the active flag
//   - GET    /v1/conversations/:type/:participant/events     - Server-sent snapshots
//
// # Middleware
//
//   - Request ids (X-Request-Id), generated when the client sends none
//   - Structured request logging and panic recovery through zap
//   - Optional bearer token, compared in constant time
//   - Per-client token bucket rate limiting
//
// # Usage
//
//	srv := server.New(server.Options{
//	    Addr:       ":8080",
//	    Ledger:     l,
//	    Sessions:   mgr,
//	    Classifier: classifier,
//	    Logger:     logger,
//	})
//	err := srv.Run(ctx) // returns after ctx is done and connections drain
package server

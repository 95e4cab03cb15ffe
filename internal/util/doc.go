// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the hirechat packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for terminal columns
//   - StringWidth: display width of a string
//   - SingleLine: collapse whitespace runs for table rows
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	// Fit a message preview into a history table column
//	cell := util.TruncateWidth(msg.Content, 40)
//
//	// Write snapshots atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
package util

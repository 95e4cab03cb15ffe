// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for hirechat.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, validation, and hot reload.
//
// # Key Types
//
//   - Config: main configuration structure with all sections
//   - ValidateErrors: every field that failed validation
//   - Watcher: fsnotify-based reloader for long-running processes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (HIRECHAT_*)
//   - The file named by --config or HIRECHAT_CONFIG
//   - ~/.hirechat/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//
// Reload on change:
//
//	go config.Watch(ctx, path, func(cfg *config.Config) {
//	    level.SetLevel(...)
//	})
package config

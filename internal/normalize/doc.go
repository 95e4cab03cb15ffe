// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package normalize turns a raw user utterance (typed or transcribed) into
// the string forms the intent matchers compare against.
//
// # Key Types
//
//   - Forms: Lowered, Normalized (camelCase split) and Cleaned (filler stripped)
//
// # Usage
//
//	forms, ok := normalize.Normalize("Can you OpenMyInvitedJobs?")
//	if !ok {
//	    // too short to be a command
//	}
//	// forms.Normalized == "can you open my invited jobs"
//	// forms.Cleaned    == "open my invited jobs"
//
// Two variants are kept because some tables match best against the
// unfillered string and others against the filler-stripped string.
package normalize

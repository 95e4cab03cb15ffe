// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fuzzy provides the edit-distance primitive shared by every
// typo-tolerant matcher in hirechat.
//
// All fuzziness in the product (navigation phrases, agent names) goes
// through Distance, so a single well-tested algorithm decides what
// counts as "close enough".
//
// # Key Functions
//
//   - Distance: Levenshtein distance over runes, unit cost per edit
//   - Within: bounded check with a cheap length pre-filter
//   - Closest: best candidate within a maximum distance, table order breaks ties
//
// # Usage
//
//	if fuzzy.Within(cleaned, "saved jobs", 2) {
//	    // treat as a typo of "saved jobs"
//	}
//
// Case folding is left to the caller; hirechat always passes strings
// that have been through the normalize package.
package fuzzy

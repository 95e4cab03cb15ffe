// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"strings"
	"unicode/utf8"

	"github.com/jeranaias/hirechat/internal/fuzzy"
	"github.com/jeranaias/hirechat/internal/normalize"
)

// ============================================================================
// FUZZY NAVIGATION MATCHER
// ============================================================================

// MatchNavigation resolves an utterance to a navigation command.
//
// Every variant of every definition is tried in table order; for each
// variant the tiers are tried in order:
//  1. Substring: the variant appears in the lowered or normalized form (0.95)
//  2. Cleaned: the variant appears in the filler-stripped form (0.90)
//  3. Edit distance: the cleaned form is within two edits of the variant
//     and longer than three characters (0.85)
//
// The first variant to satisfy any tier wins, so earlier commands take
// precedence over later ones.
func MatchNavigation(forms normalize.Forms) (Result, bool) {
	for _, d := range definitions {
		for _, v := range d.Variants {
			if tier := matchVariant(forms, v); tier != TierNone {
				return Result{
					IsCommand:  true,
					Command:    d.Command,
					Confidence: tier.Confidence(),
					Stage:      StageNavigation,
					Tier:       tier,
				}, true
			}
		}
	}
	return Result{}, false
}

// MatchNavigationText normalizes utterance and runs MatchNavigation.
func MatchNavigationText(utterance string) (Result, bool) {
	forms, ok := normalize.Normalize(utterance)
	if !ok {
		return Result{}, false
	}
	return MatchNavigation(forms)
}

func matchVariant(f normalize.Forms, variant string) Tier {
	if strings.Contains(f.Normalized, variant) || strings.Contains(f.Lowered, variant) {
		return TierSubstring
	}
	if f.Cleaned == "" {
		return TierNone
	}
	if strings.Contains(f.Cleaned, variant) {
		return TierCleaned
	}
	if utf8.RuneCountInString(f.Cleaned) > minFuzzyLength && fuzzy.Within(f.Cleaned, variant, maxEditDistance) {
		return TierEditDistance
	}
	return TierNone
}

// ============================================================================
// LITERAL KEYWORDS
// ============================================================================

// MatchKeywords checks every definition's keyword list for a whole-word
// literal hit in the normalized utterance.
func MatchKeywords(forms normalize.Forms) (Result, bool) {
	for _, d := range definitions {
		for _, k := range d.Keywords {
			if containsPhrase(forms.Normalized, k) || containsPhrase(forms.Lowered, k) {
				return Result{
					IsCommand:  true,
					Command:    d.Command,
					Confidence: ConfidenceKeyword,
					Stage:      StageKeyword,
				}, true
			}
		}
	}
	return Result{}, false
}

// containsPhrase reports whether phrase occurs in text on word boundaries.
// Both strings are expected to be normalized (single-spaced, lowercase).
func containsPhrase(text, phrase string) bool {
	if text == "" || phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

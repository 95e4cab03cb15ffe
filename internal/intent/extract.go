// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"regexp"
	"strings"

	"github.com/jeranaias/hirechat/internal/normalize"
)

// Extractor isolates the natural-language heuristics the classifier relies
// on, so the rule set can be replaced without touching the pipeline.
type Extractor interface {
	// JobTitle returns the job title requested by the utterance, if the
	// utterance is a "tell me about the X role" style request.
	JobTitle(forms normalize.Forms) (string, bool)

	// HasSwitchKeyword reports whether the utterance asks to change agent.
	HasSwitchKeyword(forms normalize.Forms) bool

	// AgentFragment returns the text naming the requested agent, or "" if
	// no switching pattern captures one.
	AgentFragment(forms normalize.Forms) string
}

// RegexExtractor is the default Extractor, driven by pattern tables.
type RegexExtractor struct {
	JobPatterns    []*regexp.Regexp
	Exclusions     []string
	RoleKeywords   []string
	SwitchKeywords []string
	SwitchPatterns []*regexp.Regexp
}

// NewRegexExtractor returns an extractor loaded with the built-in tables.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{
		JobPatterns:    jobTitlePatterns,
		Exclusions:     jobTitleExclusions,
		RoleKeywords:   roleKeywords,
		SwitchKeywords: switchKeywords,
		SwitchPatterns: switchPatterns,
	}
}

// trailingPoliteness is trimmed from the end of captured fragments.
var trailingPoliteness = []string{"please", "thanks", "thank you", "now"}

// JobTitle applies the first matching job pattern. The capture is accepted
// only if it is not a navigation phrase, is longer than three characters
// and names a role or seniority.
func (e *RegexExtractor) JobTitle(forms normalize.Forms) (string, bool) {
	for _, p := range e.JobPatterns {
		m := p.FindStringSubmatch(forms.Normalized)
		if m == nil {
			continue
		}
		title := trimTrailing(strings.TrimSpace(m[1]), trailingPoliteness)
		if len([]rune(title)) <= minJobTitleLength {
			return "", false
		}
		for _, ex := range e.Exclusions {
			if strings.Contains(title, ex) {
				return "", false
			}
		}
		if !hasWordPrefix(title, e.RoleKeywords) {
			return "", false
		}
		return title, true
	}
	return "", false
}

// HasSwitchKeyword reports whether any switching phrase or pattern
// appears in the normalized utterance.
func (e *RegexExtractor) HasSwitchKeyword(forms normalize.Forms) bool {
	for _, k := range e.SwitchKeywords {
		if containsPhrase(forms.Normalized, k) {
			return true
		}
	}
	for _, p := range e.SwitchPatterns {
		if p.MatchString(forms.Normalized) {
			return true
		}
	}
	return false
}

// AgentFragment captures the text after the first matching switch pattern
// with leading articles and trailing politeness removed.
func (e *RegexExtractor) AgentFragment(forms normalize.Forms) string {
	for _, p := range e.SwitchPatterns {
		m := p.FindStringSubmatch(forms.Normalized)
		if m == nil {
			continue
		}
		frag := trimLeading(strings.TrimSpace(m[1]), leadingArticles)
		return trimTrailing(frag, trailingPoliteness)
	}
	return ""
}

// ============================================================================
// HELPERS
// ============================================================================

// trimLeading repeatedly removes any of words from the start of s.
func trimLeading(s string, words []string) string {
	for changed := true; changed; {
		changed = false
		for _, w := range words {
			if rest, ok := strings.CutPrefix(s, w+" "); ok {
				s = strings.TrimSpace(rest)
				changed = true
			}
		}
	}
	return s
}

// trimTrailing repeatedly removes any of words from the end of s.
func trimTrailing(s string, words []string) string {
	for changed := true; changed; {
		changed = false
		for _, w := range words {
			if rest, ok := strings.CutSuffix(s, " "+w); ok {
				s = strings.TrimSpace(rest)
				changed = true
			}
		}
	}
	return s
}

// hasWordPrefix reports whether any word of s starts with one of prefixes.
func hasWordPrefix(s string, prefixes []string) bool {
	for _, word := range strings.Fields(s) {
		for _, p := range prefixes {
			if strings.HasPrefix(word, p) {
				return true
			}
		}
	}
	return false
}

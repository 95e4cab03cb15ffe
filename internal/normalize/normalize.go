// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinLength is the shortest trimmed utterance worth classifying.
const MinLength = 3

// Forms holds the comparable variants of one utterance.
type Forms struct {
	// Raw is the input with surrounding whitespace trimmed.
	Raw string

	// Lowered is Raw lowercased with punctuation removed, without camelCase splitting.
	Lowered string

	// Normalized is Raw with camelCase runs split, then lowercased with
	// punctuation removed.
	Normalized string

	// Cleaned is Normalized with filler phrases removed.
	Cleaned string
}

// =============================================================================
// FILLER PHRASES
// =============================================================================

// fillerPhrases are conversational padding that carries no intent.
// Matched as whole words against already-normalized text.
var fillerPhrases = []string{
	"how about",
	"can you",
	"could you",
	"would you",
	"will you",
	"show me",
	"take me to",
	"bring me to",
	"bring up",
	"pull up",
	"go to",
	"navigate to",
	"i want to see",
	"i want to",
	"i would like to",
	"id like to",
	"i need to",
	"let me see",
	"please",
	"open",
	"check",
	"display",
	"the",
	"a",
	"an",
	"just",
	"hey",
	"okay",
	"ok",
	"um",
	"uh",
}

var fillerRegex = buildFillerRegex(fillerPhrases)

// buildFillerRegex compiles a whole-word alternation. Longer phrases come
// first so "i want to see" is removed before "i want to".
func buildFillerRegex(phrases []string) *regexp.Regexp {
	sorted := append([]string(nil), phrases...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// =============================================================================
// NORMALIZE
// =============================================================================

// Normalize produces the comparable forms of raw. ok is false when the
// trimmed input is shorter than MinLength runes; such input is never a
// command and callers should not spend matching work on it.
func Normalize(raw string) (forms Forms, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if utf8.RuneCountInString(trimmed) < MinLength {
		return Forms{Raw: trimmed}, false
	}

	normalized := fold(SplitCamel(trimmed))
	return Forms{
		Raw:        trimmed,
		Lowered:    fold(trimmed),
		Normalized: normalized,
		Cleaned:    StripFillers(normalized),
	}, true
}

// SplitCamel inserts a space before an uppercase letter that follows a
// lowercase letter, and between two uppercase letters when the second
// starts a lowercase run: "OpenMyJobs" -> "Open My Jobs",
// "HRManager" -> "HR Manager".
func SplitCamel(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)

	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			switch {
			case unicode.IsLower(prev):
				b.WriteByte(' ')
			case unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1]):
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StripFillers removes filler phrases from already-normalized text and
// collapses the leftover whitespace.
func StripFillers(normalized string) string {
	return collapseSpaces(fillerRegex.ReplaceAllString(normalized, " "))
}

// fold lowercases s, removes diacritics and punctuation, and collapses
// whitespace. Apostrophes are dropped so "what's" becomes "whats".
func fold(s string) string {
	// Transformers carry state, so a fresh chain per call keeps fold safe
	// for concurrent use.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = cases.Lower(language.Und).String(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '\'' || r == '’':
			// drop
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return collapseSpaces(b.String())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fuzzy

// =============================================================================
// EDIT DISTANCE
// =============================================================================

// Distance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions or substitutions needed to
// turn one into the other.
//
// Comparison is rune-wise, so multi-byte characters count as one edit.
func Distance(a, b string) int {
	s1 := []rune(a)
	s2 := []rune(b)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Keep the shorter string in the columns.
	if len(s2) > len(s1) {
		s1, s2 = s2, s1
	}

	cols := len(s2) + 1
	prev := make([]int, cols)
	curr := make([]int, cols)

	for j := 0; j < cols; j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i

		for j := 1; j < cols; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}

			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[cols-1]
}

// Within reports whether Distance(a, b) <= max.
// Strings whose lengths differ by more than max are rejected without
// running the full computation.
func Within(a, b string, max int) bool {
	if max < 0 {
		return false
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if abs(la-lb) > max {
		return false
	}
	return Distance(a, b) <= max
}

// Closest returns the candidate nearest to input whose distance is at most
// max. When several candidates share the best distance, the earliest one in
// the slice wins. ok is false when nothing is close enough.
func Closest(input string, candidates []string, max int) (best string, distance int, ok bool) {
	distance = -1
	for _, c := range candidates {
		if !Within(input, c, max) {
			continue
		}
		d := Distance(input, c)
		if distance == -1 || d < distance {
			best, distance = c, d
		}
	}
	return best, distance, distance != -1
}

// =============================================================================
// HELPERS
// =============================================================================

// min3 returns the minimum of three integers.
func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

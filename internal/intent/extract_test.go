// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"testing"

	"github.com/jeranaias/hirechat/internal/normalize"
)

func mustForms(t *testing.T, s string) normalize.Forms {
	t.Helper()
	f, ok := normalize.Normalize(s)
	if !ok {
		t.Fatalf("Normalize(%q) rejected", s)
	}
	return f
}

func TestRegexExtractor_JobTitle(t *testing.T) {
	ex := NewRegexExtractor()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Tell me about the senior backend engineer role", "senior backend engineer role", true},
		{"Can you give me details about the Product Designer position please", "product designer position", true},
		{"What's the data analyst role about?", "data analyst role", true},
		{"Tell me more about that staff ML engineer opening", "staff ml engineer opening", true},
		{"tell me about my saved jobs", "", false},
		{"tell me about the account manager role", "", false},
		{"tell me about the weather", "", false},
		{"tell me about QA", "", false},
		{"what jobs are open", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ex.JobTitle(mustForms(t, tt.in))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("JobTitle(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRegexExtractor_Switching(t *testing.T) {
	ex := NewRegexExtractor()

	tests := []struct {
		in       string
		keyword  bool
		fragment string
	}{
		{"I want to speak to Darlene", true, "darlene"},
		{"could you connect me with the finance team please", true, "finance team"},
		{"Switch me over to Marcus now", true, "marcus"},
		{"put me through to someone in sales", true, "sales"},
		{"transfer me", true, ""},
		{"what does an account manager do", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := mustForms(t, tt.in)
			if got := ex.HasSwitchKeyword(f); got != tt.keyword {
				t.Errorf("HasSwitchKeyword(%q) = %v, want %v", tt.in, got, tt.keyword)
			}
			if got := ex.AgentFragment(f); got != tt.fragment {
				t.Errorf("AgentFragment(%q) = %q, want %q", tt.in, got, tt.fragment)
			}
		})
	}
}

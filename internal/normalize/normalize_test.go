// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import "testing"

func TestNormalize_RejectsShortInput(t *testing.T) {
	for _, in := range []string{"", "a", "ab", "  ab  ", "\tx\n"} {
		if _, ok := Normalize(in); ok {
			t.Errorf("Normalize(%q) ok = true, want false", in)
		}
	}
	if _, ok := Normalize("abc"); !ok {
		t.Error("Normalize(\"abc\") ok = false, want true")
	}
}

func TestNormalize_Forms(t *testing.T) {
	tests := []struct {
		in         string
		lowered    string
		normalized string
		cleaned    string
	}{
		{
			in:         "OpenMyInvitedJobs",
			lowered:    "openmyinvitedjobs",
			normalized: "open my invited jobs",
			cleaned:    "my invited jobs",
		},
		{
			in:         "  Show me saved jobs!  ",
			lowered:    "show me saved jobs",
			normalized: "show me saved jobs",
			cleaned:    "saved jobs",
		},
		{
			in:         "Can you please take me to the Dashboard?",
			lowered:    "can you please take me to the dashboard",
			normalized: "can you please take me to the dashboard",
			cleaned:    "dashboard",
		},
		{
			in:         "What's the HRManager role about",
			lowered:    "whats the hrmanager role about",
			normalized: "whats the hr manager role about",
			cleaned:    "whats hr manager role about",
		},
		{
			in:         "Talk to Renée",
			lowered:    "talk to renee",
			normalized: "talk to renee",
			cleaned:    "talk to renee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			if !ok {
				t.Fatalf("Normalize(%q) rejected", tt.in)
			}
			if got.Lowered != tt.lowered {
				t.Errorf("Lowered = %q, want %q", got.Lowered, tt.lowered)
			}
			if got.Normalized != tt.normalized {
				t.Errorf("Normalized = %q, want %q", got.Normalized, tt.normalized)
			}
			if got.Cleaned != tt.cleaned {
				t.Errorf("Cleaned = %q, want %q", got.Cleaned, tt.cleaned)
			}
		})
	}
}

func TestSplitCamel(t *testing.T) {
	tests := map[string]string{
		"OpenMyJobs":        "Open My Jobs",
		"openMyJobs":        "open My Jobs",
		"HRManager":         "HR Manager",
		"already split":     "already split",
		"ALLCAPS":           "ALLCAPS",
		"viewJobDetailsNow": "view Job Details Now",
	}
	for in, want := range tests {
		if got := SplitCamel(in); got != want {
			t.Errorf("SplitCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripFillers_WholeWordsOnly(t *testing.T) {
	tests := map[string]string{
		"the theme settings":           "theme settings",
		"i want to see my interviews":  "my interviews",
		"how about an update":          "update",
		"okay open pricing please":     "pricing",
		"another anthem":               "another anthem",
		"show me":                      "",
	}
	for in, want := range tests {
		if got := StripFillers(in); got != want {
			t.Errorf("StripFillers(%q) = %q, want %q", in, got, want)
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"errors"
	"testing"

	"github.com/jeranaias/hirechat/internal/fuzzy"
)

func TestResolveAgentName(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"I want to speak to Darlene", "darlene", true},
		{"talk to darleen", "darlene", true},
		{"connect me with marc", "marcus", true},
		{"put me through to Sofia Alvarez please", "sofia", true},
		{"chat with Jordan from marketing", "jordan", true},
		{"talk to the account manager", "darlene", true},
		{"switch me to the hr manager", "priya", true},
		{"connect me with a technical recruiter", "marcus", true},
		{"speak with someone in sales", "jordan", true},
		{"talk to somebody about an invoice", "sofia", true},
		{"talk to the weather", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ResolveAgentName(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ResolveAgentName(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveAgentName_DarleneWithinTwoEdits(t *testing.T) {
	got, ok := ResolveAgentName("I want to speak to Darlene")
	if !ok {
		t.Fatal("no agent resolved")
	}
	if d := fuzzy.Distance(got, "darlene"); d > 2 {
		t.Errorf("resolved %q, distance %d from darlene", got, d)
	}
}

func TestResolveAgentName_RolePriority(t *testing.T) {
	// Several role keywords: the fixed order puts account first.
	got, ok := ResolveAgentName("talk to the technical account person in finance")
	if !ok || got != "darlene" {
		t.Errorf("got (%q, %v), want darlene", got, ok)
	}

	// "manager" next to "hr" is not an account manager.
	got, _ = ResolveAgentName("talk to an hr manager")
	if got != "priya" {
		t.Errorf("hr manager resolved to %q, want priya", got)
	}
}

func TestNewAgentRegistry(t *testing.T) {
	_, err := NewAgentRegistry([]Agent{
		{ID: "a", FirstName: "Sam"},
		{ID: "b", FirstName: "sam"},
	})
	if !errors.Is(err, ErrDuplicateAgent) {
		t.Errorf("duplicate names: err = %v, want ErrDuplicateAgent", err)
	}

	if _, err := NewAgentRegistry([]Agent{{ID: "x"}}); err == nil {
		t.Error("missing first name accepted")
	}

	r := DefaultAgentRegistry()
	a, ok := r.Lookup("PRIYA")
	if !ok || a.Role != RoleHR {
		t.Errorf("Lookup(PRIYA) = (%+v, %v)", a, ok)
	}
	if len(a.RoleKeywords) == 0 {
		t.Error("default agents carry no role keywords")
	}
}

func TestResolverKnown(t *testing.T) {
	agents, err := NewAgentRegistry([]Agent{
		{ID: "agent-sam", DisplayName: "Sam Okafor", FirstName: "Sam", Role: RoleHR},
		{ID: "agent-alexandra", DisplayName: "Alexandra Moss", FirstName: "Alexandra", Role: RoleFinance},
	})
	if err != nil {
		t.Fatalf("NewAgentRegistry: %v", err)
	}
	r := NewResolver(agents, nil)

	tests := []struct {
		fragment string
		want     string
		wantOK   bool
	}{
		{"Sam", "sam", true},
		{"sam okafor", "sam", true},
		{"alexandr", "alexandra", true},
		{"alexnadra", "alexandra", true},
		{"darlene", "", false},
		{"ab", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := r.Known(tt.fragment)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Known(%q) = (%q, %v), want (%q, %v)", tt.fragment, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolveAgentName_Typos(t *testing.T) {
	for in, want := range map[string]string{
		"speak to darleen":       "darlene",
		"talk to the hr manager": "priya",
	} {
		got, ok := ResolveAgentName(in)
		if !ok || got != want {
			t.Errorf("ResolveAgentName(%q) = (%q, %v), want %s", in, got, ok, want)
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFallbackResponse(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		isCommand bool
		command   string
		conf      float64
	}{
		{"bare", `{"isCommand":true,"command":"inbox","confidence":0.9}`, true, "inbox", 0.9},
		{"fenced json", "```json\n{\"isCommand\":true,\"command\":\"pricing\",\"confidence\":0.8}\n```", true, "pricing", 0.8},
		{"fenced plain", "```\n{\"isCommand\":false,\"command\":null,\"confidence\":0.3}\n```", false, "", 0.3},
		{"chatty", `Sure! Here you go: {"isCommand":true,"command":"profile","confidence":0.77} Hope that helps.`, true, "profile", 0.77},
		{"clamped high", `{"isCommand":true,"command":"inbox","confidence":7}`, true, "inbox", 1},
		{"clamped low", `{"isCommand":false,"command":null,"confidence":-2}`, false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFallbackResponse(tt.in)
			if err != nil {
				t.Fatalf("parseFallbackResponse: %v", err)
			}
			if got.IsCommand != tt.isCommand || got.Confidence != tt.conf {
				t.Errorf("got (%v, %v), want (%v, %v)", got.IsCommand, got.Confidence, tt.isCommand, tt.conf)
			}
			cmd := ""
			if got.Command != nil {
				cmd = *got.Command
			}
			if cmd != tt.command {
				t.Errorf("command = %q, want %q", cmd, tt.command)
			}
		})
	}
}

func TestParseFallbackResponse_Invalid(t *testing.T) {
	for _, in := range []string{"", "no json here", "{broken", "```json\n{nope}\n```"} {
		if _, err := parseFallbackResponse(in); !errors.Is(err, ErrParseResponse) {
			t.Errorf("parseFallbackResponse(%q) err = %v, want ErrParseResponse", in, err)
		}
	}
}

func TestRenderSystemPrompt(t *testing.T) {
	prompt := renderSystemPrompt(Catalogue(), DefaultAgents())

	for _, want := range []string{
		"- saved jobs:",
		"- switch to <name>:",
		"- view job: <title>:",
		"- darlene (Account Manager)",
		`"isCommand"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// spyCompleter records calls and returns a canned reply.
type spyCompleter struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   string
	err     error
	block   chan struct{}
}

func (s *spyCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func (s *spyCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestClassifier(c Completer) *Classifier {
	policy := DefaultFallbackPolicy()
	policy.Rate = 0
	policy.Timeout = time.Second
	return New(Options{Completer: c, Policy: &policy})
}

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Result
		json string
	}{
		{
			name: "saved jobs phrase",
			in:   "Show me saved jobs",
			want: Result{IsCommand: true, Command: CommandSavedJobs, Confidence: 0.95, Stage: StageNavigation, Tier: TierSubstring},
			json: `{"isCommand":true,"command":"saved jobs","confidence":0.95}`,
		},
		{
			name: "job title",
			in:   "Tell me about the senior backend engineer role",
			want: Result{IsCommand: true, Command: CommandViewJob, Confidence: 0.9, Parameter: "senior backend engineer role", Stage: StageJobTitle},
			json: `{"isCommand":true,"command":"view job","confidence":0.9,"extractedParameter":"senior backend engineer role"}`,
		},
		{
			name: "agent switch",
			in:   "I want to speak to Darlene",
			want: Result{IsCommand: true, Command: CommandSwitchAgent, Confidence: 0.9, Parameter: "darlene", Stage: StageAgentSwitch},
			json: `{"isCommand":true,"command":"switch to darlene","confidence":0.9,"extractedParameter":"darlene"}`,
		},
		{
			name: "keyword",
			in:   "how much does it cost to go pro",
			want: Result{IsCommand: true, Command: CommandPricing, Confidence: 0.95, Stage: StageKeyword},
			json: `{"isCommand":true,"command":"pricing","confidence":0.95}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := &spyCompleter{reply: `{"isCommand":false,"command":null,"confidence":0}`}
			c := newTestClassifier(spy)

			got := c.Classify(context.Background(), tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}

			data, err := json.Marshal(got)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(data) != tt.json {
				t.Errorf("JSON = %s, want %s", data, tt.json)
			}

			if spy.Calls() != 0 {
				t.Errorf("fallback called %d times for a deterministic match", spy.Calls())
			}
		})
	}
}

func TestClassify_ShortInputNeverReachesFallback(t *testing.T) {
	spy := &spyCompleter{reply: `{"isCommand":true,"command":"inbox","confidence":1}`}
	c := newTestClassifier(spy)

	got := c.Classify(context.Background(), "ab")
	if diff := cmp.Diff(Result{}, got); diff != "" {
		t.Errorf("Classify(ab) mismatch (-want +got):\n%s", diff)
	}
	if spy.Calls() != 0 {
		t.Errorf("fallback called %d times, want 0", spy.Calls())
	}
}

func TestClassify_ApplyjumpsIsNotAppliedJobs(t *testing.T) {
	spy := &spyCompleter{reply: `{"isCommand":false,"command":null,"confidence":0.2}`}
	c := newTestClassifier(spy)

	got := c.Classify(context.Background(), "applyjumps")
	if got.IsCommand || got.Command == CommandAppliedJobs {
		t.Fatalf("Classify(applyjumps) = %+v, want not a command", got)
	}
	if got.Confidence != 0.2 {
		t.Errorf("Confidence = %v, want the model's 0.2", got.Confidence)
	}
	if spy.Calls() != 1 {
		t.Errorf("fallback called %d times, want 1", spy.Calls())
	}
}

func TestClassify_Fallback(t *testing.T) {
	const utterance = "where can I look at openings I bookmarked last week"

	tests := []struct {
		name  string
		reply string
		err   error
		want  Result
	}{
		{
			name:  "fenced accept",
			reply: "```json\n{\"isCommand\": true, \"command\": \"saved jobs\", \"confidence\": 0.82}\n```",
			want:  Result{IsCommand: true, Command: CommandSavedJobs, Confidence: 0.82, Stage: StageFallback},
		},
		{
			name:  "exactly at threshold",
			reply: `{"isCommand": true, "command": "saved jobs", "confidence": 0.70}`,
			want:  Result{IsCommand: true, Command: CommandSavedJobs, Confidence: 0.70, Stage: StageFallback},
		},
		{
			name:  "below threshold",
			reply: `{"isCommand": true, "command": "saved jobs", "confidence": 0.69}`,
			want:  Result{Confidence: 0.69},
		},
		{
			name:  "unknown command keeps model confidence",
			reply: `{"isCommand": true, "command": "teleport", "confidence": 0.9}`,
			want:  Result{Confidence: 0.9},
		},
		{
			name:  "switch to known agent",
			reply: `{"isCommand": true, "command": "switch to Priya", "confidence": 0.8}`,
			want:  Result{IsCommand: true, Command: CommandSwitchAgent, Confidence: 0.8, Parameter: "priya", Stage: StageFallback},
		},
		{
			name:  "switch to unknown agent",
			reply: `{"isCommand": true, "command": "switch to Bartholomew", "confidence": 0.8}`,
			want:  Result{Confidence: 0.8},
		},
		{
			name:  "malformed",
			reply: "I think the user wants their saved jobs.",
			want:  Result{},
		},
		{
			name: "transport error",
			err:  errors.New("connection refused"),
			want: Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := &spyCompleter{reply: tt.reply, err: tt.err}
			c := newTestClassifier(spy)

			got := c.Classify(context.Background(), utterance)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if spy.Calls() != 1 {
				t.Errorf("fallback called %d times, want 1", spy.Calls())
			}
		})
	}
}

func TestClassify_FallbackPromptCarriesUtterance(t *testing.T) {
	spy := &spyCompleter{reply: `{"isCommand":false,"command":null,"confidence":0}`}
	c := newTestClassifier(spy)

	c.Classify(context.Background(), `what's "hot" right now`)
	if len(spy.prompts) != 1 {
		t.Fatalf("prompts = %d, want 1", len(spy.prompts))
	}
	want := `User message: "what's \"hot\" right now"`
	if spy.prompts[0] != want {
		t.Errorf("prompt = %q, want %q", spy.prompts[0], want)
	}
}

func TestClassify_CancelledCallerGetsRejection(t *testing.T) {
	spy := &spyCompleter{
		reply: `{"isCommand": true, "command": "inbox", "confidence": 0.99}`,
		block: make(chan struct{}),
	}
	policy := DefaultFallbackPolicy()
	policy.Rate = 0
	policy.Timeout = 50 * time.Millisecond
	c := New(Options{Completer: spy, Policy: &policy})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- c.Classify(ctx, "anything new for me today") }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case got := <-done:
		if got.IsCommand || got.Confidence != 0 {
			t.Errorf("cancelled Classify = %+v, want rejection", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Classify did not return after cancellation")
	}
}

func TestClassify_FallbackTimeout(t *testing.T) {
	spy := &spyCompleter{block: make(chan struct{})}
	policy := DefaultFallbackPolicy()
	policy.Rate = 0
	policy.Timeout = 20 * time.Millisecond
	c := New(Options{Completer: spy, Policy: &policy})

	got := c.Classify(context.Background(), "anything new for me today")
	if got.IsCommand || got.Confidence != 0 {
		t.Errorf("timed out Classify = %+v, want rejection", got)
	}
}

func TestClassify_RateLimitedFallback(t *testing.T) {
	spy := &spyCompleter{reply: `{"isCommand":false,"command":null,"confidence":0.1}`}
	policy := DefaultFallbackPolicy()
	policy.Rate = 0.001
	policy.Burst = 1
	c := New(Options{Completer: spy, Policy: &policy})

	c.Classify(context.Background(), "first open question here")
	got := c.Classify(context.Background(), "second open question here")

	if spy.Calls() != 1 {
		t.Errorf("fallback called %d times, want 1", spy.Calls())
	}
	if got.IsCommand || got.Confidence != 0 {
		t.Errorf("rate limited Classify = %+v, want rejection with confidence 0", got)
	}
}

func TestClassify_SetFallbackPolicy(t *testing.T) {
	spy := &spyCompleter{reply: `{"isCommand":true,"command":"inbox","confidence":0.75}`}
	c := newTestClassifier(spy)

	if got := c.Classify(context.Background(), "anything new for me today"); !got.IsCommand {
		t.Fatalf("default policy rejected: %+v", got)
	}

	strict := DefaultFallbackPolicy()
	strict.Rate = 0
	strict.Threshold = 0.8
	c.SetFallbackPolicy(strict)
	if got := c.Classify(context.Background(), "anything new for me today"); got.IsCommand {
		t.Errorf("threshold 0.8 accepted confidence 0.75")
	}

	off := strict
	off.Enabled = false
	c.SetFallbackPolicy(off)
	calls := spy.Calls()
	c.Classify(context.Background(), "anything new for me today")
	if spy.Calls() != calls {
		t.Error("disabled fallback still called the model")
	}
}

func TestClassify_NoCompleter(t *testing.T) {
	c := New(Options{})
	got := c.Classify(context.Background(), "what is the weather like")
	if diff := cmp.Diff(Result{}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

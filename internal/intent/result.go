// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// STAGE AND TIER
// ============================================================================

// Stage records which step of the classification pipeline produced a result.
type Stage int

const (
	StageRejected Stage = iota
	StageNavigation
	StageKeyword
	StageJobTitle
	StageAgentSwitch
	StageFallback
)

// String returns the stage name used in logs.
func (s Stage) String() string {
	switch s {
	case StageRejected:
		return "rejected"
	case StageNavigation:
		return "navigation"
	case StageKeyword:
		return "keyword"
	case StageJobTitle:
		return "job_title"
	case StageAgentSwitch:
		return "agent_switch"
	case StageFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Tier is the fuzzy navigation strategy that matched.
type Tier int

const (
	TierNone Tier = iota
	// TierSubstring: the variant appears in the normalized utterance.
	TierSubstring
	// TierCleaned: the variant appears once filler phrases are removed.
	TierCleaned
	// TierEditDistance: the cleaned utterance is within two edits of the variant.
	TierEditDistance
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierSubstring:
		return "substring"
	case TierCleaned:
		return "cleaned"
	case TierEditDistance:
		return "edit_distance"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Confidence returns the confidence awarded by the tier.
func (t Tier) Confidence() float64 {
	switch t {
	case TierSubstring:
		return ConfidenceSubstring
	case TierCleaned:
		return ConfidenceCleaned
	case TierEditDistance:
		return ConfidenceEditDistance
	default:
		return 0
	}
}

// ============================================================================
// RESULT
// ============================================================================

// Result is the outcome of classifying one utterance. It is produced fresh
// for every call and never persisted.
type Result struct {
	IsCommand  bool
	Command    Command
	Confidence float64

	// Parameter is the extracted job title or agent first name.
	Parameter string

	// Stage and Tier describe how the result was reached. Diagnostic only.
	Stage Stage
	Tier  Tier
}

// CommandID returns the identifier sent to clients: the canonical id, or
// "switch to <name>" for agent switches. Empty when IsCommand is false.
func (r Result) CommandID() string {
	if !r.IsCommand {
		return ""
	}
	if r.Command == CommandSwitchAgent {
		return switchPrefix + r.Parameter
	}
	return r.Command.String()
}

type resultJSON struct {
	IsCommand          bool    `json:"isCommand"`
	Command            string  `json:"command,omitempty"`
	Confidence         float64 `json:"confidence"`
	ExtractedParameter string  `json:"extractedParameter,omitempty"`
}

// MarshalJSON encodes the result in the client-facing shape
// {isCommand, command, confidence, extractedParameter}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		IsCommand:          r.IsCommand,
		Command:            r.CommandID(),
		Confidence:         r.Confidence,
		ExtractedParameter: r.Parameter,
	})
}

// reject builds a not-a-command result carrying conf.
func reject(conf float64) Result {
	return Result{Confidence: clamp01(conf), Stage: StageRejected}
}

func clamp01(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

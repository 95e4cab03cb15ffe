// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import "regexp"

// ============================================================================
// CONFIDENCE LEVELS
// ============================================================================

const (
	// ConfidenceSubstring is awarded when a phrase variant appears verbatim.
	ConfidenceSubstring = 0.95
	// ConfidenceCleaned is awarded when the variant appears once fillers are removed.
	ConfidenceCleaned = 0.90
	// ConfidenceEditDistance is awarded for a typo-level match.
	ConfidenceEditDistance = 0.85
	// ConfidenceKeyword is awarded for a literal keyword hit.
	ConfidenceKeyword = 0.95
	// ConfidenceViewJob is awarded for an extracted job title.
	ConfidenceViewJob = 0.9
	// ConfidenceSwitch is awarded for a resolved agent switch.
	ConfidenceSwitch = 0.9

	// DefaultFallbackThreshold is the minimum model confidence accepted.
	DefaultFallbackThreshold = 0.70

	// maxEditDistance bounds every typo-tolerant comparison.
	maxEditDistance = 2
	// minFuzzyLength is the cleaned length a string must exceed before the
	// edit-distance tier applies.
	minFuzzyLength = 3
)

// ============================================================================
// AGENT SWITCHING
// ============================================================================

// switchKeywords mark an utterance as a request to change agent.
var switchKeywords = []string{
	"talk to",
	"talk with",
	"speak to",
	"speak with",
	"chat with",
	"connect me",
	"switch to",
	"switch me to",
	"transfer me",
	"put me through",
	"hand me over",
	"hand me off",
}

// switchPatterns capture the name fragment following a switching phrase.
// The first pattern that matches wins.
var switchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:talk|speak|chat)\s+(?:to|with)\s+(.+)$`),
	regexp.MustCompile(`\bconnect\s+me\s+(?:to|with)\s+(.+)$`),
	regexp.MustCompile(`\bswitch\s+(?:me\s+)?(?:over\s+)?to\s+(.+)$`),
	regexp.MustCompile(`\btransfer\s+me\s+(?:over\s+)?to\s+(.+)$`),
	regexp.MustCompile(`\bput\s+me\s+through\s+to\s+(.+)$`),
	regexp.MustCompile(`\bhand\s+me\s+(?:over|off)\s+to\s+(.+)$`),
}

// leadingArticles are dropped from the front of a name fragment.
var leadingArticles = []string{
	"someone from", "someone in", "somebody from", "somebody in",
	"the", "a", "an", "my", "our", "your",
}

// ============================================================================
// JOB TITLE EXTRACTION
// ============================================================================

// jobTitlePatterns capture a job title from "tell me about the X" style
// requests. They run against the normalized utterance.
var jobTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btell\s+me\s+(?:more\s+)?about\s+(?:the\s+|this\s+|that\s+)?(.+)$`),
	regexp.MustCompile(`\b(?:details|info|information|more)\s+(?:about|on|for)\s+(?:the\s+|this\s+|that\s+)?(.+)$`),
	regexp.MustCompile(`\bwhat(?:s|\s+is)\s+(?:the\s+)?(.+?\s+(?:job|role|position|opening))\s+about$`),
	regexp.MustCompile(`\b(?:view|open|show)\s+(?:me\s+)?(?:the\s+)?(?:job|role|position|opening)\s+(?:for\s+|called\s+|titled\s+)?(.+)$`),
	regexp.MustCompile(`\bdescribe\s+(?:the\s+|this\s+|that\s+)?(.+)$`),
}

// jobTitleExclusions reject captured fragments that are really navigation
// phrases ("tell me about my saved jobs"). Substring test.
var jobTitleExclusions = []string{
	"saved",
	"applied",
	"invited",
	"recommended",
	"application",
	"invitation",
	"interviews",
	"candidates",
	"inbox",
	"messages",
	"profile",
	"settings",
	"pricing",
	"plans",
	"subscription",
	"dashboard",
	"account",
	"my data",
}

// roleKeywords mark a fragment as a job title. A fragment qualifies when
// any of its words starts with one of these.
var roleKeywords = []string{
	"engineer", "developer", "programmer", "architect", "devops",
	"manager", "director", "lead", "head", "principal", "staff",
	"senior", "junior", "intern", "associate",
	"designer", "analyst", "scientist", "researcher",
	"recruiter", "specialist", "consultant", "coordinator",
	"administrator", "accountant", "marketer", "writer",
	"officer", "technician", "assistant", "representative",
	"executive", "strategist", "owner", "tester",
}

// minJobTitleLength is the length a captured title must exceed.
const minJobTitleLength = 3

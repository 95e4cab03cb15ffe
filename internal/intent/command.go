// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"fmt"
	"strings"
)

// ============================================================================
// COMMAND TYPE
// ============================================================================

// Command is the closed set of actions an utterance can be classified to.
// CommandNone is the zero value and means "not a command".
type Command int

const (
	CommandNone Command = iota
	CommandSavedJobs
	CommandAppliedJobs
	CommandInvitedJobs
	CommandRecommendedJobs
	CommandInterviews
	CommandCandidates
	CommandInbox
	CommandProfile
	CommandSettings
	CommandPricing
	CommandDashboard
	// CommandViewJob carries the job title as its parameter.
	CommandViewJob
	// CommandSwitchAgent carries the agent's lowercased first name as its parameter.
	CommandSwitchAgent
)

// String returns the canonical command identifier.
func (c Command) String() string {
	if d, ok := definitionFor(c); ok {
		return d.ID
	}
	if c == CommandNone {
		return ""
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// RequiresParameter reports whether the command is meaningless without an
// extracted parameter.
func (c Command) RequiresParameter() bool {
	return c == CommandViewJob || c == CommandSwitchAgent
}

// IsNavigation reports whether the command opens a fixed screen.
func (c Command) IsNavigation() bool {
	return c > CommandNone && c < CommandViewJob
}

// Definition returns the static table entry for c.
func (c Command) Definition() (Definition, bool) {
	return definitionFor(c)
}

// switchPrefix is the wire form of an agent switch: "switch to <name>".
const switchPrefix = "switch to "

// ParseCommand maps an identifier back to a Command. It accepts canonical
// ids ("saved jobs"), "switch to <name>" and "view job <title>" /
// "view job: <title>", returning the parameter for the last two.
func ParseCommand(id string) (cmd Command, param string, ok bool) {
	s := strings.ToLower(strings.TrimSpace(id))
	if s == "" {
		return CommandNone, "", false
	}

	if strings.HasPrefix(s, switchPrefix) {
		name := strings.TrimSpace(strings.TrimPrefix(s, switchPrefix))
		return CommandSwitchAgent, name, name != ""
	}

	viewID := CommandViewJob.String()
	if rest, found := strings.CutPrefix(s, viewID); found && (rest == "" || rest[0] == ' ' || rest[0] == ':') {
		title := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), ":"))
		return CommandViewJob, title, true
	}

	for _, d := range definitions {
		if d.ID == s {
			return d.Command, "", true
		}
	}
	return CommandNone, "", false
}

// ============================================================================
// DEFINITIONS
// ============================================================================

// Definition is the phrase data attached to one Command.
type Definition struct {
	Command     Command
	ID          string
	Description string

	// Variants are matched by the fuzzy navigation matcher (substring,
	// cleaned containment, edit distance). Each must already be in
	// normalized form and free of filler words.
	Variants []string

	// Keywords are literal phrases checked by plain containment only. They
	// hold phrasings too loose to be safe under edit-distance matching.
	Keywords []string
}

// definitions is the command table in match priority order. Earlier entries
// win when an utterance matches more than one.
var definitions = []Definition{
	{
		Command:     CommandSavedJobs,
		ID:          "saved jobs",
		Description: "Open the list of jobs the user saved or bookmarked.",
		Variants:    []string{"saved jobs", "saved positions", "bookmarked jobs", "saved roles"},
		Keywords:    []string{"jobs i saved", "my bookmarks", "favorite jobs", "favourite jobs", "shortlisted jobs"},
	},
	{
		Command:     CommandAppliedJobs,
		ID:          "applied jobs",
		Description: "Open the jobs the user has applied to and their application status.",
		Variants:    []string{"applied jobs", "my applications", "application status", "jobs i applied"},
		Keywords:    []string{"where did i apply", "applications i sent", "track my application"},
	},
	{
		Command:     CommandInvitedJobs,
		ID:          "invited jobs",
		Description: "Open the jobs an employer invited the user to apply for.",
		Variants:    []string{"invited jobs", "job invitations", "job invites"},
		Keywords:    []string{"who invited me", "invitations i received"},
	},
	{
		Command:     CommandRecommendedJobs,
		ID:          "recommended jobs",
		Description: "Open job recommendations matched to the user's profile.",
		Variants:    []string{"recommended jobs", "job recommendations", "jobs for me", "matching jobs"},
		Keywords:    []string{"what jobs fit me", "suggest some jobs", "find me a job", "new jobs"},
	},
	{
		Command:     CommandInterviews,
		ID:          "interviews",
		Description: "Open the user's scheduled and upcoming interviews.",
		Variants:    []string{"upcoming interviews", "interview schedule", "my interviews", "scheduled interviews"},
		Keywords:    []string{"when is my interview", "next interview"},
	},
	{
		Command:     CommandCandidates,
		ID:          "candidates",
		Description: "Open the recruiter's candidate pipeline.",
		Variants:    []string{"my candidates", "candidate list", "talent pool", "candidate pipeline"},
		Keywords:    []string{"show applicants", "who applied", "applicant list"},
	},
	{
		Command:     CommandInbox,
		ID:          "inbox",
		Description: "Open the message inbox.",
		Variants:    []string{"inbox", "my messages", "unread messages"},
		Keywords:    []string{"new messages", "any messages"},
	},
	{
		Command:     CommandProfile,
		ID:          "profile",
		Description: "Open the user's profile and resume.",
		Variants:    []string{"my profile", "edit profile", "profile page"},
		Keywords:    []string{"update my cv", "upload resume", "upload my resume", "my cv"},
	},
	{
		Command:     CommandSettings,
		ID:          "settings",
		Description: "Open account, privacy and notification settings.",
		Variants:    []string{"settings", "preferences", "account settings", "notification settings"},
		Keywords:    []string{"change my password", "notifications", "privacy"},
	},
	{
		Command:     CommandPricing,
		ID:          "pricing",
		Description: "Open subscription plans and pricing.",
		Variants:    []string{"pricing", "subscription plans", "upgrade plan", "premium plans"},
		Keywords:    []string{"how much does it cost", "go premium", "cost of premium"},
	},
	{
		Command:     CommandDashboard,
		ID:          "dashboard",
		Description: "Return to the main dashboard.",
		Variants:    []string{"dashboard", "home page", "home screen", "main menu"},
		Keywords:    []string{"go home", "start over"},
	},
	{
		Command:     CommandViewJob,
		ID:          "view job",
		Description: "Open the details of one job; the job title is the parameter.",
	},
	{
		Command:     CommandSwitchAgent,
		ID:          "switch agent",
		Description: "Hand the conversation to another agent; the agent's first name is the parameter.",
	},
}

func definitionFor(c Command) (Definition, bool) {
	for _, d := range definitions {
		if d.Command == c {
			return d, true
		}
	}
	return Definition{}, false
}

// Definitions returns a copy of the command table in priority order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// ============================================================================
// CATALOGUE
// ============================================================================

// CatalogueEntry is one line of the command catalogue shown to the fallback
// classifier and to API clients.
type CatalogueEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Catalogue lists every command with the identifier form a classifier
// should return for it.
func Catalogue() []CatalogueEntry {
	out := make([]CatalogueEntry, 0, len(definitions))
	for _, d := range definitions {
		id := d.ID
		switch d.Command {
		case CommandSwitchAgent:
			id = switchPrefix + "<name>"
		case CommandViewJob:
			id = d.ID + ": <title>"
		}
		out = append(out, CatalogueEntry{ID: id, Description: d.Description})
	}
	return out
}

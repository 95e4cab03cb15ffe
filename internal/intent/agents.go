// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/hirechat/internal/fuzzy"
	"github.com/jeranaias/hirechat/internal/normalize"
)

// ============================================================================
// ROLES
// ============================================================================

// Role is the job an agent performs on the platform.
type Role int

const (
	RoleUnknown Role = iota
	RoleAccountManager
	RoleTechnicalRecruiter
	RoleHR
	RoleSalesMarketing
	RoleFinance
)

// String returns the role's display name.
func (r Role) String() string {
	switch r {
	case RoleAccountManager:
		return "Account Manager"
	case RoleTechnicalRecruiter:
		return "Technical Recruiter"
	case RoleHR:
		return "HR"
	case RoleSalesMarketing:
		return "Sales & Marketing"
	case RoleFinance:
		return "Finance"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the role by display name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// roleRule maps keywords to a role. A rule matches when any term is present
// and no term in unless is present.
type roleRule struct {
	role   Role
	any    []string
	unless []string
}

// roleRules are evaluated in order; the first match wins.
var roleRules = []roleRule{
	{role: RoleAccountManager, any: []string{"account"}},
	{role: RoleAccountManager, any: []string{"manager"}, unless: []string{"hr"}},
	{role: RoleTechnicalRecruiter, any: []string{"recruit", "technical"}},
	{role: RoleHR, any: []string{"hr", "human resources", "people team"}},
	{role: RoleSalesMarketing, any: []string{"sales", "marketing"}},
	{role: RoleFinance, any: []string{"finance", "billing", "invoice", "payment"}},
}

// matchTerm treats terms of two characters or fewer as whole words and
// longer terms as substrings, so "hr" does not match "three" but "recruit"
// matches "recruiter".
func matchTerm(text, term string) bool {
	if len(term) <= 2 {
		return containsPhrase(text, term)
	}
	return strings.Contains(text, term)
}

func (r roleRule) matches(text string) bool {
	for _, u := range r.unless {
		if matchTerm(text, u) {
			return false
		}
	}
	for _, a := range r.any {
		if matchTerm(text, a) {
			return true
		}
	}
	return false
}

// roleKeywordsFor lists every positive term that leads to role.
func roleKeywordsFor(role Role) []string {
	var out []string
	for _, r := range roleRules {
		if r.role == role {
			out = append(out, r.any...)
		}
	}
	return out
}

// ============================================================================
// AGENT REGISTRY
// ============================================================================

// Agent describes a platform agent a user can be handed to.
type Agent struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"displayName"`
	FirstName    string   `json:"firstName"`
	Role         Role     `json:"role"`
	RoleKeywords []string `json:"roleKeywords,omitempty"`
}

// DefaultAgents returns the built-in agent roster.
func DefaultAgents() []Agent {
	agents := []Agent{
		{ID: "agent-darlene", DisplayName: "Darlene Robertson", FirstName: "Darlene", Role: RoleAccountManager},
		{ID: "agent-marcus", DisplayName: "Marcus Chen", FirstName: "Marcus", Role: RoleTechnicalRecruiter},
		{ID: "agent-priya", DisplayName: "Priya Nair", FirstName: "Priya", Role: RoleHR},
		{ID: "agent-jordan", DisplayName: "Jordan Ellis", FirstName: "Jordan", Role: RoleSalesMarketing},
		{ID: "agent-sofia", DisplayName: "Sofia Alvarez", FirstName: "Sofia", Role: RoleFinance},
	}
	for i := range agents {
		agents[i].RoleKeywords = roleKeywordsFor(agents[i].Role)
	}
	return agents
}

// ErrDuplicateAgent is returned when two agents share a first name.
var ErrDuplicateAgent = errors.New("duplicate agent first name")

// AgentRegistry is an immutable, ordered set of agents keyed by lowercased
// first name.
type AgentRegistry struct {
	agents []Agent
	names  []string
}

// NewAgentRegistry validates agents and builds a registry.
func NewAgentRegistry(agents []Agent) (*AgentRegistry, error) {
	r := &AgentRegistry{
		agents: make([]Agent, 0, len(agents)),
		names:  make([]string, 0, len(agents)),
	}
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		name := strings.ToLower(strings.TrimSpace(a.FirstName))
		if name == "" {
			return nil, fmt.Errorf("agent %q: first name is required", a.ID)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, name)
		}
		seen[name] = true
		r.agents = append(r.agents, a)
		r.names = append(r.names, name)
	}
	return r, nil
}

// DefaultAgentRegistry returns a registry of DefaultAgents.
func DefaultAgentRegistry() *AgentRegistry {
	r, err := NewAgentRegistry(DefaultAgents())
	if err != nil {
		panic(err)
	}
	return r
}

// All returns the agents in registry order.
func (r *AgentRegistry) All() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Lookup finds an agent by first name, case-insensitively.
func (r *AgentRegistry) Lookup(firstName string) (Agent, bool) {
	name := strings.ToLower(strings.TrimSpace(firstName))
	for i, n := range r.names {
		if n == name {
			return r.agents[i], true
		}
	}
	return Agent{}, false
}

// byRole returns the lowercased first name of the first agent with role.
func (r *AgentRegistry) byRole(role Role) (string, bool) {
	for i, a := range r.agents {
		if a.Role == role {
			return r.names[i], true
		}
	}
	return "", false
}

// ============================================================================
// AGENT NAME RESOLVER
// ============================================================================

// Resolver maps a switching utterance to a known agent.
type Resolver struct {
	agents    *AgentRegistry
	extractor Extractor
}

// NewResolver creates a resolver. Nil arguments fall back to the defaults.
func NewResolver(agents *AgentRegistry, extractor Extractor) *Resolver {
	if agents == nil {
		agents = DefaultAgentRegistry()
	}
	if extractor == nil {
		extractor = NewRegexExtractor()
	}
	return &Resolver{agents: agents, extractor: extractor}
}

var defaultResolver = NewResolver(nil, nil)

// ResolveAgentName resolves utterance against the default roster and
// returns the agent's lowercased first name.
func ResolveAgentName(utterance string) (string, bool) {
	forms, ok := normalize.Normalize(utterance)
	if !ok {
		return "", false
	}
	return defaultResolver.Resolve(forms)
}

// Resolve extracts the name fragment from the utterance and resolves it in
// order: exact first name, substring either way, edit distance <= 2, then
// the role keyword rules applied to the whole utterance.
func (r *Resolver) Resolve(forms normalize.Forms) (string, bool) {
	fragment := r.extractor.AgentFragment(forms)
	if name, ok := r.Known(fragment); ok {
		return name, true
	}
	return r.byRoleKeyword(forms.Normalized)
}

// Known resolves a name fragment by exact, substring and edit-distance
// tests only.
func (r *Resolver) Known(fragment string) (string, bool) {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return "", false
	}

	for i, a := range r.agents.agents {
		if fragment == r.agents.names[i] || fragment == strings.ToLower(a.DisplayName) {
			return r.agents.names[i], true
		}
	}

	for _, name := range r.agents.names {
		if strings.Contains(fragment, name) {
			return name, true
		}
		if len(fragment) >= 3 && strings.Contains(name, fragment) {
			return name, true
		}
	}

	best, bestDist := "", -1
	for _, word := range append([]string{fragment}, strings.Fields(fragment)...) {
		if len(word) < 3 {
			continue
		}
		if name, d, ok := fuzzy.Closest(word, r.agents.names, maxEditDistance); ok && (bestDist == -1 || d < bestDist) {
			best, bestDist = name, d
		}
	}
	if bestDist != -1 {
		return best, true
	}
	return "", false
}

func (r *Resolver) byRoleKeyword(utterance string) (string, bool) {
	for _, rule := range roleRules {
		if rule.matches(utterance) {
			return r.agents.byRole(rule.role)
		}
	}
	return "", false
}

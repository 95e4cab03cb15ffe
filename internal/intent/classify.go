// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"context"

	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/normalize"
)

// ============================================================================
// CLASSIFIER
// ============================================================================

// Options configures a Classifier. Zero values select the defaults.
type Options struct {
	// Agents is the roster used for agent switching.
	Agents *AgentRegistry

	// Extractor supplies the job-title and agent-name heuristics.
	Extractor Extractor

	// Completer backs the model fallback. Nil disables the fallback.
	Completer Completer

	// Policy overrides DefaultFallbackPolicy when non-nil.
	Policy *FallbackPolicy

	Logger *zap.Logger
}

// Classifier decides what a free-text utterance means. It is safe for
// concurrent use.
type Classifier struct {
	agents    *AgentRegistry
	extractor Extractor
	resolver  *Resolver
	fallback  *fallback
	log       *zap.Logger
}

// New creates a Classifier.
func New(opts Options) *Classifier {
	if opts.Agents == nil {
		opts.Agents = DefaultAgentRegistry()
	}
	if opts.Extractor == nil {
		opts.Extractor = NewRegexExtractor()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	policy := DefaultFallbackPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}

	log := opts.Logger.Named("intent")
	resolver := NewResolver(opts.Agents, opts.Extractor)
	return &Classifier{
		agents:    opts.Agents,
		extractor: opts.Extractor,
		resolver:  resolver,
		fallback:  newFallback(opts.Completer, resolver, opts.Agents, policy, log),
		log:       log,
	}
}

// Classify runs the decision pipeline. Steps are tried strictly in order
// and the first to accept wins:
//  1. Length gate: fewer than three characters is never a command
//  2. Fuzzy navigation match
//  3. Literal keyword match (0.95)
//  4. Job title extraction, accepted as "view job" (0.9)
//  5. Agent switch via the name resolver (0.9)
//  6. Model fallback, accepted at or above the policy threshold
//
// Only step 6 blocks, and it honors ctx. Classify always returns a
// well-formed Result.
func (c *Classifier) Classify(ctx context.Context, utterance string) Result {
	forms, ok := normalize.Normalize(utterance)
	if !ok {
		return c.done(forms, reject(0))
	}

	if r, ok := MatchNavigation(forms); ok {
		return c.done(forms, r)
	}

	if r, ok := MatchKeywords(forms); ok {
		return c.done(forms, r)
	}

	if title, ok := c.extractor.JobTitle(forms); ok {
		return c.done(forms, Result{
			IsCommand:  true,
			Command:    CommandViewJob,
			Confidence: ConfidenceViewJob,
			Parameter:  title,
			Stage:      StageJobTitle,
		})
	}

	if c.extractor.HasSwitchKeyword(forms) {
		if name, ok := c.resolver.Resolve(forms); ok {
			return c.done(forms, Result{
				IsCommand:  true,
				Command:    CommandSwitchAgent,
				Confidence: ConfidenceSwitch,
				Parameter:  name,
				Stage:      StageAgentSwitch,
			})
		}
	}

	return c.done(forms, c.fallback.classify(ctx, forms.Raw))
}

// SetFallbackPolicy replaces the fallback policy at runtime.
func (c *Classifier) SetFallbackPolicy(p FallbackPolicy) {
	c.fallback.setPolicy(p)
	c.log.Info("fallback policy updated",
		zap.Bool("enabled", p.Enabled),
		zap.Float64("threshold", p.Threshold),
		zap.Float64("rate", p.Rate))
}

// Agents returns the roster the classifier resolves names against.
func (c *Classifier) Agents() *AgentRegistry {
	return c.agents
}

func (c *Classifier) done(forms normalize.Forms, r Result) Result {
	c.log.Debug("utterance classified",
		zap.String("normalized", forms.Normalized),
		zap.String("stage", r.Stage.String()),
		zap.Bool("command", r.IsCommand),
		zap.String("id", r.CommandID()),
		zap.Float64("confidence", r.Confidence))
	return r
}

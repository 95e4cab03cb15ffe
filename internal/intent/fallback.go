// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Completer produces a model completion for a system and user prompt.
// llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ErrParseResponse is returned when a classifier reply holds no usable JSON.
var ErrParseResponse = errors.New("failed to parse classifier response")

// ============================================================================
// POLICY
// ============================================================================

// FallbackPolicy controls when and how the model classifier is consulted.
type FallbackPolicy struct {
	// Enabled turns the model fallback on.
	Enabled bool

	// Threshold is the minimum confidence accepted from the model.
	Threshold float64

	// Timeout bounds a single model call.
	Timeout time.Duration

	// Rate is the sustained number of model calls per second. Zero disables
	// rate limiting.
	Rate float64

	// Burst is the number of calls allowed above Rate.
	Burst int
}

// DefaultFallbackPolicy returns the production policy.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		Enabled:   true,
		Threshold: DefaultFallbackThreshold,
		Timeout:   8 * time.Second,
		Rate:      2,
		Burst:     5,
	}
}

func (p FallbackPolicy) limiter() *rate.Limiter {
	if p.Rate <= 0 {
		return nil
	}
	burst := p.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(p.Rate), burst)
}

// ============================================================================
// FALLBACK CLASSIFIER
// ============================================================================

type fallback struct {
	completer Completer
	resolver  *Resolver
	system    string
	log       *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	policy  FallbackPolicy
	limiter *rate.Limiter
}

func newFallback(c Completer, resolver *Resolver, agents *AgentRegistry, policy FallbackPolicy, log *zap.Logger) *fallback {
	return &fallback{
		completer: c,
		resolver:  resolver,
		system:    renderSystemPrompt(Catalogue(), agents.All()),
		log:       log,
		policy:    policy,
		limiter:   policy.limiter(),
	}
}

func (f *fallback) setPolicy(p FallbackPolicy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policy = p
	f.limiter = p.limiter()
}

func (f *fallback) snapshot() (FallbackPolicy, *rate.Limiter) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.policy, f.limiter
}

// classify asks the model about utterance. It never fails: transport
// errors, timeouts, rate limiting and bad replies all yield a rejection
// with confidence 0.
//
// Concurrent calls for the same utterance share one model request. The
// shared request is bounded by the policy timeout rather than any single
// caller's context; a caller whose context ends stops waiting and gets a
// rejection, so a late reply is never applied after teardown.
func (f *fallback) classify(ctx context.Context, utterance string) Result {
	policy, limiter := f.snapshot()
	if f.completer == nil || !policy.Enabled {
		return reject(0)
	}
	if ctx.Err() != nil {
		return reject(0)
	}
	if limiter != nil && !limiter.Allow() {
		f.log.Warn("fallback classifier rate limited", zap.Float64("rate", policy.Rate))
		return reject(0)
	}

	ch := f.group.DoChan(utterance, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), policy.Timeout)
		defer cancel()
		return f.completer.Complete(callCtx, f.system, renderUserPrompt(utterance))
	})

	select {
	case <-ctx.Done():
		f.log.Debug("fallback classification abandoned", zap.Error(ctx.Err()))
		return reject(0)
	case res := <-ch:
		if res.Err != nil {
			f.log.Warn("fallback classifier failed", zap.Error(res.Err))
			return reject(0)
		}
		text, _ := res.Val.(string)
		parsed, err := parseFallbackResponse(text)
		if err != nil {
			f.log.Warn("fallback classifier reply unusable", zap.Error(err))
			return reject(0)
		}
		return f.decide(parsed, policy.Threshold)
	}
}

// decide applies the confidence gate and validates the returned command.
// Rejections keep the model's own confidence.
func (f *fallback) decide(resp fallbackResponse, threshold float64) Result {
	conf := clamp01(resp.Confidence)
	if !resp.IsCommand || resp.Command == nil {
		return reject(conf)
	}

	cmd, param, ok := ParseCommand(*resp.Command)
	if !ok || cmd == CommandNone || conf < threshold {
		return reject(conf)
	}

	if cmd == CommandSwitchAgent {
		name, known := f.resolver.Known(param)
		if !known {
			return reject(conf)
		}
		param = name
	}
	if cmd.RequiresParameter() && param == "" {
		return reject(conf)
	}

	return Result{
		IsCommand:  true,
		Command:    cmd,
		Confidence: conf,
		Parameter:  param,
		Stage:      StageFallback,
	}
}

// ============================================================================
// PROMPT
// ============================================================================

func renderSystemPrompt(catalogue []CatalogueEntry, agents []Agent) string {
	var b strings.Builder
	b.WriteString("You classify messages sent to the assistant of a recruiting platform.\n")
	b.WriteString("Decide whether the message asks the app to perform one of the actions below right now.\n")
	b.WriteString("Questions, small talk and requests for advice are not commands.\n\n")

	b.WriteString("Commands:\n")
	for _, e := range catalogue {
		fmt.Fprintf(&b, "- %s: %s\n", e.ID, e.Description)
	}

	if len(agents) > 0 {
		b.WriteString("\nAgents the user can switch to:\n")
		for _, a := range agents {
			fmt.Fprintf(&b, "- %s (%s)\n", strings.ToLower(a.FirstName), a.Role)
		}
	}

	b.WriteString("\nRules:\n")
	b.WriteString("1. Reply with one JSON object and nothing else.\n")
	b.WriteString(`2. Use exactly this shape: {"isCommand": true|false, "command": "<command id>"|null, "confidence": <number between 0 and 1>}` + "\n")
	b.WriteString("3. \"command\" must be one of the command ids above with any <placeholder> filled in, or null when isCommand is false.\n")
	b.WriteString("4. Report isCommand true only for a clear request to act, not for a mention of a topic.\n")
	return b.String()
}

func renderUserPrompt(utterance string) string {
	quoted, _ := json.Marshal(utterance)
	return "User message: " + string(quoted)
}

// ============================================================================
// RESPONSE PARSING
// ============================================================================

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

type fallbackResponse struct {
	IsCommand  bool    `json:"isCommand"`
	Command    *string `json:"command"`
	Confidence float64 `json:"confidence"`
}

// parseFallbackResponse accepts bare JSON, JSON inside a code fence, or the
// first {...} span of a chatty reply.
func parseFallbackResponse(content string) (fallbackResponse, error) {
	content = strings.TrimSpace(content)

	candidates := []string{content}
	if m := jsonBlockRegex.FindStringSubmatch(content); len(m) >= 2 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}

	for _, c := range candidates {
		var resp fallbackResponse
		if err := json.Unmarshal([]byte(c), &resp); err == nil {
			resp.Confidence = math.Max(0.0, math.Min(1.0, resp.Confidence))
			return resp, nil
		}
	}

	return fallbackResponse{}, fmt.Errorf("%w: could not parse JSON from response", ErrParseResponse)
}

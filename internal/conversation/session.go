// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/hirechat/internal/intent"
	"github.com/jeranaias/hirechat/internal/ledger"
	"github.com/jeranaias/hirechat/internal/llm"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyMessage is returned by SendMessage for blank text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNotMounted is returned when a Session is used before Mount or
	// after Unmount.
	ErrNotMounted = errors.New("session is not mounted")

	// ErrClosed is returned by a Manager after Close.
	ErrClosed = errors.New("conversation manager is closed")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Apology is appended when a model reply fails before producing any text.
const Apology = "Sorry, I couldn't get a response just now. Please try again in a moment."

// DefaultHistoryLimit is how many recent messages are sent to the model.
const DefaultHistoryLimit = 20

// DefaultReplies is the simulated reply pool.
var DefaultReplies = []string{
	"Thanks for reaching out! I'd be happy to chat.",
	"That sounds interesting. Could you share more details about the role?",
	"I'm available for a call this week. What times work for you?",
	"Thanks! Let me review and get back to you shortly.",
	"Is the position remote-friendly?",
}

// Classifier decides whether an utterance is a command.
// *intent.Classifier satisfies it.
type Classifier interface {
	Classify(ctx context.Context, utterance string) intent.Result
}

// Streamer generates a reply in chunks. llm.Client satisfies it.
type Streamer interface {
	Stream(ctx context.Context, turns []llm.Turn, onChunk func(string)) error
}

// Options configures Sessions. Zero values select the defaults.
type Options struct {
	// Ledger holds the history. Required.
	Ledger *ledger.Ledger

	// Classifier routes commands away from the reply path. Nil sends
	// every utterance as a message.
	Classifier Classifier

	// Streamer produces agent replies. Nil makes every conversation
	// simulated.
	Streamer Streamer

	// SystemPrompt prefixes the model history.
	SystemPrompt string

	// HistoryLimit caps the messages sent to the model.
	HistoryLimit int

	// Replies and ReplyDelay drive simulated replies. A zero delay
	// replies immediately.
	Replies    []string
	ReplyDelay time.Duration

	Logger *zap.Logger

	// Pick chooses a reply index in [0, n). Overridable for tests.
	Pick func(n int) int
}

func (o Options) withDefaults() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if len(o.Replies) == 0 {
		o.Replies = DefaultReplies
	}
	if o.ReplyDelay < 0 {
		o.ReplyDelay = 0
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Pick == nil {
		o.Pick = rand.IntN
	}
	return o
}

// =============================================================================
// SESSION
// =============================================================================

// Session drives one conversation. It is safe for concurrent use.
type Session struct {
	key    ledger.Key
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	idle     *sync.Cond // signalled when inflight drops to zero
	mounted  bool
	base     context.Context // mount context, never cancelled
	ctx      context.Context // cancelled on Unmount and Clear
	cancel   context.CancelFunc
	inflight int
}

// SendResult describes what SendMessage did with an utterance.
type SendResult struct {
	// Intent is the classification, zero when no classifier is set.
	Intent intent.Result

	// Message is the appended user message. Nil for commands.
	Message *ledger.Message
}

// IsCommand reports whether the utterance was routed as a command.
func (r SendResult) IsCommand() bool {
	return r.Intent.IsCommand
}

// NewSession creates an unmounted Session for key.
func NewSession(key ledger.Key, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		key:    key,
		opts:   opts,
		logger: opts.Logger.Named("conversation").With(zap.String("conversation", key.ID())),
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Key returns the conversation key.
func (s *Session) Key() ledger.Key {
	return s.key
}

// Simulated reports whether replies come from the canned pool rather than
// the model. Candidate conversations are always simulated.
func (s *Session) Simulated() bool {
	return s.opts.Streamer == nil || s.key.Type != ledger.TypeAgent
}

// Mount loads the conversation, marks it active, and returns its history.
// Pending replies live until Unmount, not until ctx is done.
func (s *Session) Mount(ctx context.Context) ([]ledger.Message, error) {
	if _, err := s.opts.Ledger.GetOrCreate(s.key); err != nil {
		return nil, err
	}

	// The active flag changes under mu so it always agrees with mounted.
	s.mu.Lock()
	if err := s.opts.Ledger.SetActive(s.key, true); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !s.mounted {
		s.base = context.WithoutCancel(ctx)
		s.ctx, s.cancel = context.WithCancel(s.base)
		s.mounted = true
		s.logger.Debug("session mounted")
	}
	s.mu.Unlock()

	return s.opts.Ledger.Messages(s.key), nil
}

// Unmount cancels pending replies, waits for them, and marks the
// conversation inactive. Unmounting twice is a no-op.
func (s *Session) Unmount() error {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return nil
	}
	s.mounted = false
	s.cancel()
	s.waitLocked()
	err := s.opts.Ledger.SetActive(s.key, false)
	s.mu.Unlock()

	s.logger.Debug("session unmounted")
	return err
}

// Wait blocks until every pending reply has finished.
func (s *Session) Wait() {
	s.mu.Lock()
	s.waitLocked()
	s.mu.Unlock()
}

func (s *Session) waitLocked() {
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

// Messages returns the conversation history in timestamp order.
func (s *Session) Messages() []ledger.Message {
	return s.opts.Ledger.Messages(s.key)
}

// Subscribe registers fn for this conversation's events.
func (s *Session) Subscribe(fn ledger.Listener) (unsubscribe func()) {
	return s.opts.Ledger.SubscribeConversation(s.key.ID(), fn)
}

// SetActive sets the conversation's active flag.
func (s *Session) SetActive(active bool) error {
	return s.opts.Ledger.SetActive(s.key, active)
}

// ClearConversation cancels pending replies and removes every message.
func (s *Session) ClearConversation() error {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return ErrNotMounted
	}
	s.cancel()
	s.waitLocked()
	if s.mounted {
		s.ctx, s.cancel = context.WithCancel(s.base)
	}
	s.mu.Unlock()
	return s.opts.Ledger.Clear(s.key)
}

// SendMessage handles one user utterance. Commands are returned without
// touching the history. Anything else is appended immediately and the
// reply is generated in the background; call Wait to block for it.
func (s *Session) SendMessage(ctx context.Context, text string, medium ledger.Medium) (SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{}, ErrEmptyMessage
	}
	if !s.isMounted() {
		return SendResult{}, ErrNotMounted
	}

	var res SendResult
	if s.opts.Classifier != nil {
		res.Intent = s.opts.Classifier.Classify(ctx, text)
		if res.Intent.IsCommand {
			s.logger.Debug("utterance routed as command",
				zap.String("command", res.Intent.CommandID()),
				zap.Float64("confidence", res.Intent.Confidence))
			return res, nil
		}
	}

	in := ledger.NewMessage{
		Content:  text,
		Role:     ledger.RoleUser,
		SenderID: "user",
		Medium:   medium,
	}
	s.tagCounterpart(&in)
	msg, err := s.opts.Ledger.Append(s.key, in)
	if err != nil {
		return SendResult{}, err
	}
	res.Message = &msg

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		// Unmounted while classifying or appending. Append marked the
		// conversation active again.
		s.logger.Debug("session unmounted before reply; no reply sent")
		if err := s.opts.Ledger.SetActive(s.key, false); err != nil {
			return res, err
		}
		return res, nil
	}
	replyCtx := s.ctx
	s.inflight++
	go func() {
		defer s.done()
		if s.Simulated() {
			s.simulateReply(replyCtx)
		} else {
			s.streamReply(replyCtx)
		}
	}()
	return res, nil
}

func (s *Session) done() {
	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

func (s *Session) isMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// tagCounterpart records the agent or candidate the message belongs with.
func (s *Session) tagCounterpart(in *ledger.NewMessage) {
	switch s.key.Type {
	case ledger.TypeAgent:
		in.AgentID = s.key.ParticipantID
	case ledger.TypeCandidate:
		in.CandidateID = s.key.ParticipantID
	}
}

// =============================================================================
// REPLIES
// =============================================================================

func (s *Session) reply(content string) (ledger.Message, error) {
	in := ledger.NewMessage{
		Content:  content,
		Role:     ledger.RoleAssistant,
		SenderID: s.key.ParticipantID,
		Medium:   ledger.MediumText,
	}
	s.tagCounterpart(&in)
	return s.opts.Ledger.Append(s.key, in)
}

func (s *Session) simulateReply(ctx context.Context) {
	timer := time.NewTimer(s.opts.ReplyDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	content := s.opts.Replies[s.opts.Pick(len(s.opts.Replies))]
	if _, err := s.reply(content); err != nil {
		s.logger.Warn("simulated reply failed", zap.Error(err))
	}
}

// streamReply appends the assistant message on the first chunk and grows
// it in place afterwards.
func (s *Session) streamReply(ctx context.Context) {
	var (
		id      string
		content strings.Builder
		lost    bool
	)
	err := s.opts.Streamer.Stream(ctx, s.turns(), func(chunk string) {
		if lost {
			return
		}
		content.WriteString(chunk)
		if id == "" {
			msg, err := s.reply(content.String())
			if err != nil {
				s.logger.Warn("failed to append reply", zap.Error(err))
				lost = true
				return
			}
			id = msg.ID
			return
		}
		if _, err := s.opts.Ledger.UpdateMessage(id, content.String()); err != nil {
			// Cleared underneath us.
			lost = true
		}
	})

	switch {
	case err == nil:
		if id == "" {
			s.logger.Warn("model returned an empty reply")
		}
	case ctx.Err() != nil:
		s.logger.Debug("reply cancelled", zap.Int("chars", content.Len()))
	default:
		s.logger.Warn("reply stream failed", zap.Error(err), zap.Bool("partial", id != ""))
		if id == "" {
			if _, err := s.reply(Apology); err != nil {
				s.logger.Warn("failed to append apology", zap.Error(err))
			}
		}
	}
}

// turns renders the recent history for the model.
func (s *Session) turns() []llm.Turn {
	msgs := s.opts.Ledger.Messages(s.key)
	if len(msgs) > s.opts.HistoryLimit {
		msgs = msgs[len(msgs)-s.opts.HistoryLimit:]
	}

	turns := make([]llm.Turn, 0, len(msgs)+1)
	if s.opts.SystemPrompt != "" {
		turns = append(turns, llm.Turn{Role: llm.RoleSystem, Content: s.opts.SystemPrompt})
	}
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		turns = append(turns, llm.Turn{Role: string(m.Role), Content: m.Content})
	}
	return turns
}

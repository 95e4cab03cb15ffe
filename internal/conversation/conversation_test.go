// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/hirechat/internal/intent"
	"github.com/jeranaias/hirechat/internal/ledger"
	"github.com/jeranaias/hirechat/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Started at init by opencensus, which the model client links in.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// =============================================================================
// FAKES
// =============================================================================

type fakeStreamer struct {
	chunks []string
	err    error
	// block, when set, holds the stream open after the chunks until it is
	// closed or ctx is done.
	block chan struct{}

	mu    sync.Mutex
	turns [][]llm.Turn
	ctxs  []context.Context
}

func (f *fakeStreamer) Stream(ctx context.Context, turns []llm.Turn, onChunk func(string)) error {
	f.mu.Lock()
	f.turns = append(f.turns, turns)
	f.ctxs = append(f.ctxs, ctx)
	f.mu.Unlock()

	for _, c := range f.chunks {
		onChunk(c)
	}
	if f.block != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.block:
		}
	}
	return f.err
}

func (f *fakeStreamer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns)
}

type classifierFunc func(ctx context.Context, utterance string) intent.Result

func (f classifierFunc) Classify(ctx context.Context, utterance string) intent.Result {
	return f(ctx, utterance)
}

var (
	darlene = ledger.NewKey(ledger.TypeAgent, "darlene")
	maya    = ledger.NewKey(ledger.TypeCandidate, "maya-patel")
)

func mountSession(t *testing.T, key ledger.Key, opts Options) *Session {
	t.Helper()
	if opts.Ledger == nil {
		opts.Ledger = ledger.New(ledger.Options{})
	}
	s := NewSession(key, opts)
	_, err := s.Mount(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Unmount()) })
	return s
}

func contents(msgs []ledger.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

// =============================================================================
// SESSION
// =============================================================================

func TestMountRehydratesAndActivates(t *testing.T) {
	l := ledger.New(ledger.Options{})
	_, err := l.Append(darlene, ledger.NewMessage{Content: "earlier", Role: ledger.RoleUser})
	require.NoError(t, err)
	require.NoError(t, l.SetActive(darlene, false))

	s := NewSession(darlene, Options{Ledger: l})
	history, err := s.Mount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"earlier"}, contents(history))

	conv, _ := l.Get(darlene)
	assert.True(t, conv.IsActive)

	require.NoError(t, s.Unmount())
	require.NoError(t, s.Unmount())
	conv, _ = l.Get(darlene)
	assert.False(t, conv.IsActive)
}

func TestSendMessageStreamsReply(t *testing.T) {
	l := ledger.New(ledger.Options{})
	streamer := &fakeStreamer{chunks: []string{"Hello", ", ", "world"}}
	s := mountSession(t, darlene, Options{Ledger: l, Streamer: streamer, SystemPrompt: "be brief"})

	var kinds []ledger.EventKind
	var mu sync.Mutex
	unsub := s.Subscribe(func(ev ledger.Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})
	defer unsub()

	res, err := s.SendMessage(context.Background(), "  hi there  ", ledger.MediumAudio)
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	assert.False(t, res.IsCommand())
	assert.Equal(t, "hi there", res.Message.Content)
	assert.Equal(t, ledger.MediumAudio, res.Message.Medium)
	assert.Equal(t, "darlene", res.Message.Metadata.AgentID)

	s.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello, world", msgs[1].Content)
	assert.Equal(t, ledger.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "darlene", msgs[1].SenderID)
	assert.Equal(t, "darlene", msgs[1].Metadata.AgentID)

	mu.Lock()
	assert.Equal(t, []ledger.EventKind{
		ledger.EventAppended, // user
		ledger.EventAppended, // first chunk
		ledger.EventUpdated,
		ledger.EventUpdated,
	}, kinds)
	mu.Unlock()

	require.Equal(t, 1, streamer.calls())
	turns := streamer.turns[0]
	assert.Equal(t, []llm.Turn{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: llm.RoleUser, Content: "hi there"},
	}, turns)
}

func TestStreamFailureBeforeFirstChunkApologizes(t *testing.T) {
	streamer := &fakeStreamer{err: errors.New("model offline")}
	s := mountSession(t, darlene, Options{Streamer: streamer})

	_, err := s.SendMessage(context.Background(), "hello", ledger.MediumText)
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, []string{"hello", Apology}, contents(s.Messages()))
}

func TestStreamFailureAfterChunkKeepsPartialReply(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"Partial"}, err: errors.New("connection reset")}
	s := mountSession(t, darlene, Options{Streamer: streamer})

	_, err := s.SendMessage(context.Background(), "hello", ledger.MediumText)
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, []string{"hello", "Partial"}, contents(s.Messages()))
}

func TestCommandShortCircuits(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"should not run"}}
	classifier := classifierFunc(func(_ context.Context, u string) intent.Result {
		return intent.Result{IsCommand: true, Command: intent.CommandSavedJobs, Confidence: 0.95}
	})
	s := mountSession(t, darlene, Options{Streamer: streamer, Classifier: classifier})

	res, err := s.SendMessage(context.Background(), "show me saved jobs", ledger.MediumText)
	require.NoError(t, err)
	s.Wait()

	assert.True(t, res.IsCommand())
	assert.Equal(t, "saved jobs", res.Intent.CommandID())
	assert.Nil(t, res.Message)
	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, streamer.calls())
}

func TestNonCommandIsSent(t *testing.T) {
	classifier := classifierFunc(func(context.Context, string) intent.Result {
		return intent.Result{Confidence: 0.2}
	})
	s := mountSession(t, maya, Options{Classifier: classifier, ReplyDelay: time.Millisecond})

	res, err := s.SendMessage(context.Background(), "are you free tomorrow?", ledger.MediumText)
	require.NoError(t, err)
	s.Wait()

	assert.False(t, res.IsCommand())
	assert.Equal(t, 0.2, res.Intent.Confidence)
	assert.Len(t, s.Messages(), 2)
}

func TestSendMessageErrors(t *testing.T) {
	s := NewSession(darlene, Options{Ledger: ledger.New(ledger.Options{})})

	_, err := s.SendMessage(context.Background(), "hello", ledger.MediumText)
	assert.ErrorIs(t, err, ErrNotMounted)

	_, err = s.Mount(context.Background())
	require.NoError(t, err)
	defer s.Unmount()

	_, err = s.SendMessage(context.Background(), "   ", ledger.MediumText)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = s.SendMessage(context.Background(), "hi", "video")
	assert.ErrorIs(t, err, ledger.ErrInvalidMedium)
}

func TestSimulatedReply(t *testing.T) {
	replies := []string{"first", "second", "third"}
	s := mountSession(t, maya, Options{
		Streamer:   &fakeStreamer{chunks: []string{"unused"}},
		Replies:    replies,
		ReplyDelay: time.Millisecond,
		Pick:       func(n int) int { return n - 2 },
	})
	assert.True(t, s.Simulated(), "candidate conversations are simulated")

	_, err := s.SendMessage(context.Background(), "Hi Maya", ledger.MediumText)
	require.NoError(t, err)
	s.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "maya-patel", msgs[1].SenderID)
	assert.Equal(t, "maya-patel", msgs[1].Metadata.CandidateID)
	assert.Equal(t, "maya-patel", msgs[0].Metadata.CandidateID)
}

func TestAgentWithoutStreamerIsSimulated(t *testing.T) {
	s := NewSession(darlene, Options{Ledger: ledger.New(ledger.Options{})})
	assert.True(t, s.Simulated())

	s = NewSession(darlene, Options{Ledger: ledger.New(ledger.Options{}), Streamer: &fakeStreamer{}})
	assert.False(t, s.Simulated())
}

func TestUnmountCancelsPendingReplies(t *testing.T) {
	l := ledger.New(ledger.Options{})
	s := NewSession(maya, Options{Ledger: l, ReplyDelay: time.Hour})
	_, err := s.Mount(context.Background())
	require.NoError(t, err)

	_, err = s.SendMessage(context.Background(), "hello?", ledger.MediumText)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.Unmount())
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Unmount did not cancel the pending reply")
	}

	assert.Len(t, l.Messages(maya), 1)
	conv, _ := l.Get(maya)
	assert.False(t, conv.IsActive)
}

func TestMountContextDoesNotCancelReplies(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"still here"}}
	l := ledger.New(ledger.Options{})
	s := NewSession(darlene, Options{Ledger: l, Streamer: streamer})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.Mount(ctx)
	require.NoError(t, err)
	cancel()
	defer s.Unmount()

	_, err = s.SendMessage(context.Background(), "hello", ledger.MediumText)
	require.NoError(t, err)
	s.Wait()
	assert.Equal(t, []string{"hello", "still here"}, contents(s.Messages()))
}

func TestClearConversationCancelsStream(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"Hel"}, block: make(chan struct{})}
	s := mountSession(t, darlene, Options{Streamer: streamer})

	_, err := s.SendMessage(context.Background(), "hello", ledger.MediumText)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.Messages()) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.ClearConversation())
	assert.Empty(t, s.Messages())

	// Still usable afterwards.
	close(streamer.block)
	_, err = s.SendMessage(context.Background(), "again", ledger.MediumText)
	require.NoError(t, err)
	s.Wait()
	assert.Equal(t, []string{"again", "Hel"}, contents(s.Messages()))
}

type traceKey struct{}

func TestClearConversationKeepsMountValues(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"ok"}}
	l := ledger.New(ledger.Options{})
	s := NewSession(darlene, Options{Ledger: l, Streamer: streamer})

	ctx := context.WithValue(context.Background(), traceKey{}, "trace-42")
	_, err := s.Mount(ctx)
	require.NoError(t, err)
	defer s.Unmount()

	require.NoError(t, s.ClearConversation())
	_, err = s.SendMessage(context.Background(), "hello", ledger.MediumText)
	require.NoError(t, err)
	s.Wait()

	streamer.mu.Lock()
	defer streamer.mu.Unlock()
	require.Len(t, streamer.ctxs, 1)
	assert.Equal(t, "trace-42", streamer.ctxs[0].Value(traceKey{}))
}

func TestUnmountDuringSendLeavesInactive(t *testing.T) {
	l := ledger.New(ledger.Options{})
	streamer := &fakeStreamer{chunks: []string{"too late"}}
	var s *Session
	s = NewSession(darlene, Options{
		Ledger:   l,
		Streamer: streamer,
		// Unmount lands after the mounted check and before the append.
		Classifier: classifierFunc(func(ctx context.Context, utterance string) intent.Result {
			assert.NoError(t, s.Unmount())
			return intent.Result{}
		}),
	})
	_, err := s.Mount(context.Background())
	require.NoError(t, err)

	res, err := s.SendMessage(context.Background(), "are you there?", ledger.MediumText)
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	s.Wait()

	conv, _ := l.Get(darlene)
	assert.False(t, conv.IsActive, "conversation active with no session mounted")
	assert.Equal(t, []string{"are you there?"}, contents(l.Messages(darlene)))
	assert.Zero(t, streamer.calls())
}

func TestSetActive(t *testing.T) {
	l := ledger.New(ledger.Options{})
	s := mountSession(t, darlene, Options{Ledger: l})

	require.NoError(t, s.SetActive(false))
	conv, _ := l.Get(darlene)
	assert.False(t, conv.IsActive)
}

func TestTurnsRespectHistoryLimit(t *testing.T) {
	l := ledger.New(ledger.Options{})
	for _, c := range []string{"one", "two", "", "three"} {
		_, err := l.Append(darlene, ledger.NewMessage{Content: c, Role: ledger.RoleUser})
		require.NoError(t, err)
	}
	s := NewSession(darlene, Options{Ledger: l, HistoryLimit: 2})

	assert.Equal(t, []llm.Turn{{Role: llm.RoleUser, Content: "three"}}, s.turns())
}

// =============================================================================
// MANAGER
// =============================================================================

func TestManagerReusesSessions(t *testing.T) {
	l := ledger.New(ledger.Options{})
	m := NewManager(Options{Ledger: l, ReplyDelay: time.Millisecond})

	a, err := m.Session(context.Background(), darlene)
	require.NoError(t, err)
	b, err := m.Session(context.Background(), darlene)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = m.Session(context.Background(), maya)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Key{darlene, maya}, m.Mounted())

	_, err = m.Session(context.Background(), ledger.Key{})
	assert.ErrorIs(t, err, ledger.ErrInvalidKey)

	require.NoError(t, m.Unmount(darlene))
	require.NoError(t, m.Unmount(darlene))
	assert.Equal(t, []ledger.Key{maya}, m.Mounted())

	require.NoError(t, m.Close())
	conv, _ := l.Get(maya)
	assert.False(t, conv.IsActive)

	_, err = m.Session(context.Background(), darlene)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManagerSetRepliesAndWait(t *testing.T) {
	m := NewManager(Options{Ledger: ledger.New(ledger.Options{}), Pick: func(int) int { return 0 }})
	defer m.Close()

	m.SetReplies([]string{"custom"}, 0)
	s, err := m.Session(context.Background(), maya)
	require.NoError(t, err)

	_, err = s.SendMessage(context.Background(), "hello", ledger.MediumText)
	require.NoError(t, err)
	m.Wait()

	assert.Equal(t, []string{"hello", "custom"}, contents(s.Messages()))
}

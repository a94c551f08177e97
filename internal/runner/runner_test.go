package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsahoo/recall/internal/agent"
	"github.com/jsahoo/recall/internal/model"
	"github.com/jsahoo/recall/internal/store"
)

// fakeAgent records the prompt it was invoked with and replies with canned
// events or a canned error.
type fakeAgent struct {
	lastPrompt string
	events     []agent.Event
	err        error
}

func (f *fakeAgent) Name() string { return "fake" }

func (f *fakeAgent) Invoke(_ context.Context, prompt string) ([]agent.Event, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func replyWith(text string) *fakeAgent {
	return &fakeAgent{events: []agent.Event{agent.Message{Text: text}}}
}

func newRunnerStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewCreatesSession(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)

	r, err := New(ctx, replyWith("hi"), s, s, func(o *Options) {
		o.UserID = "alice"
	})
	require.NoError(t, err)
	require.NotEmpty(t, r.SessionID())

	sess, err := s.GetSession(ctx, r.SessionID())
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.UserID)
	assert.Equal(t, "fake", sess.AgentName)
	assert.Equal(t, model.StatusActive, sess.Status)
}

func TestNewReusesExistingSession(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)

	existing, err := s.CreateSession(ctx, store.CreateSessionParams{UserID: "alice"})
	require.NoError(t, err)

	r, err := New(ctx, replyWith("hi"), s, s, func(o *Options) {
		o.SessionID = existing
	})
	require.NoError(t, err)
	assert.Equal(t, existing, r.SessionID())
}

func TestNewFallsBackOnUnknownSession(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)

	r, err := New(ctx, replyWith("hi"), s, s, func(o *Options) {
		o.SessionID = "no-such-session"
	})
	require.NoError(t, err)
	assert.NotEqual(t, "no-such-session", r.SessionID())

	_, err = s.GetSession(ctx, r.SessionID())
	assert.NoError(t, err)
}

func TestRunPersistsExchange(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)
	fake := replyWith("Try arsaa pitha and dalma.")

	r, err := New(ctx, fake, s, s, func(o *Options) { o.UserID = "ravi" })
	require.NoError(t, err)

	result, err := r.Run(ctx, "What should I cook for Nuakhai?", nil)
	require.NoError(t, err)

	assert.Equal(t, "Try arsaa pitha and dalma.", result.Response)
	assert.Equal(t, r.SessionID(), result.SessionID)
	assert.Equal(t, 2, result.TurnNumber)
	assert.Len(t, result.Events, 1)

	hist, err := s.History(ctx, store.HistoryParams{SessionID: r.SessionID()})
	require.NoError(t, err)
	require.Len(t, hist, 2)

	assert.Equal(t, model.RoleUser, hist[0].Role)
	assert.Equal(t, "What should I cook for Nuakhai?", hist[0].Content)
	assert.NotContains(t, hist[0].Metadata, "pending")

	assert.Equal(t, model.RoleAssistant, hist[1].Role)
	assert.Equal(t, "Try arsaa pitha and dalma.", hist[1].Content)
	assert.EqualValues(t, 1, hist[1].Metadata["events_count"])

	// One interaction snapshot per exchange, keyed by the user turn.
	snaps, err := s.RetrieveShortTerm(ctx, store.ShortTermQuery{SessionID: r.SessionID()})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "turn_1", snaps[0].Key)
	assert.Equal(t, model.TypeInteraction, snaps[0].MemoryType)

	snap, ok := snaps[0].Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "What should I cook for Nuakhai?", snap["prompt"])
	assert.Equal(t, "Try arsaa pitha and dalma.", snap["response"])
}

func TestRunEnrichesPromptWithStoredContext(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)
	fake := replyWith("ok")

	r, err := New(ctx, fake, s, s, func(o *Options) { o.UserID = "ravi" })
	require.NoError(t, err)

	_, err = s.StoreLongTerm(ctx, store.LongTermParams{
		Key: "diet", Value: "vegetarian", UserID: "ravi",
	})
	require.NoError(t, err)
	_, err = s.StoreShortTerm(ctx, store.ShortTermParams{
		SessionID: r.SessionID(), Key: "topic", Value: "festival menu",
	})
	require.NoError(t, err)

	_, err = r.Run(ctx, "Suggest a dessert", map[string]any{"season": "autumn"})
	require.NoError(t, err)

	prompt := fake.lastPrompt
	assert.Contains(t, prompt, "=== Relevant Context ===")
	assert.Contains(t, prompt, "- diet: vegetarian")
	assert.Contains(t, prompt, "=== Recent Session Context ===")
	assert.Contains(t, prompt, "- topic: festival menu")
	assert.Contains(t, prompt, "=== Additional Context ===")
	assert.Contains(t, prompt, "- season: autumn")

	// The literal request closes the prompt.
	assert.True(t, strings.HasSuffix(prompt, "=== Current Request ===\nSuggest a dessert"))
}

func TestRunCarriesHistoryIntoNextPrompt(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)
	fake := replyWith("noted")

	r, err := New(ctx, fake, s, s)
	require.NoError(t, err)

	_, err = r.Run(ctx, "first question", nil)
	require.NoError(t, err)

	_, err = r.Run(ctx, "second question", nil)
	require.NoError(t, err)

	assert.Contains(t, fake.lastPrompt, "=== Previous Conversation ===")
	assert.Contains(t, fake.lastPrompt, "User: first question")
	assert.Contains(t, fake.lastPrompt, "Assistant: noted")
}

func TestRunAgentErrorLeavesUserTurnPending(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)
	boom := errors.New("model overloaded")
	fake := &fakeAgent{err: boom}

	r, err := New(ctx, fake, s, s)
	require.NoError(t, err)

	_, err = r.Run(ctx, "hello?", nil)
	require.ErrorIs(t, err, boom)

	hist, err := s.History(ctx, store.HistoryParams{SessionID: r.SessionID()})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.RoleUser, hist[0].Role)
	assert.Equal(t, true, hist[0].Metadata["pending"])

	snaps, err := s.RetrieveShortTerm(ctx, store.ShortTermQuery{SessionID: r.SessionID()})
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestRunEmptyEventsYieldEmptyResponse(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)
	fake := &fakeAgent{events: []agent.Event{agent.Message{}}}

	r, err := New(ctx, fake, s, s)
	require.NoError(t, err)

	result, err := r.Run(ctx, "anyone there?", nil)
	require.NoError(t, err)
	assert.Equal(t, "", result.Response)

	hist, _ := s.History(ctx, store.HistoryParams{SessionID: r.SessionID()})
	require.Len(t, hist, 2)
	assert.Equal(t, "", hist[1].Content)
}

func TestRunReportsMemoriesUsed(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)

	r, err := New(ctx, replyWith("ok"), s, s, func(o *Options) { o.UserID = "ravi" })
	require.NoError(t, err)

	for _, key := range []string{"a", "b"} {
		_, err = s.StoreLongTerm(ctx, store.LongTermParams{Key: key, Value: "x", UserID: "ravi"})
		require.NoError(t, err)
	}
	_, err = s.StoreShortTerm(ctx, store.ShortTermParams{SessionID: r.SessionID(), Key: "c", Value: "y"})
	require.NoError(t, err)

	result, err := r.Run(ctx, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MemoriesUsed.ShortTerm)
	assert.Equal(t, 2, result.MemoriesUsed.LongTerm)
}

func TestStoreMemory(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)

	r, err := New(ctx, replyWith("ok"), s, s, func(o *Options) { o.UserID = "ravi" })
	require.NoError(t, err)

	id, err := r.StoreMemory(ctx, "diet", "vegetarian", model.TypePreference, 0.9, true)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.RetrieveLongTerm(ctx, store.LongTermQuery{Key: "diet", UserID: "ravi"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.9, got[0].Importance)
	assert.Equal(t, r.SessionID(), got[0].SessionID)

	_, err = r.StoreMemory(ctx, "scratch", "temp", "", 0, false)
	require.NoError(t, err)

	short, err := s.RetrieveShortTerm(ctx, store.ShortTermQuery{SessionID: r.SessionID(), Key: "scratch"})
	require.NoError(t, err)
	assert.Len(t, short, 1)
}

func TestCloseSession(t *testing.T) {
	ctx := context.Background()
	s := newRunnerStore(t)

	r, err := New(ctx, replyWith("ok"), s, s)
	require.NoError(t, err)
	require.NoError(t, r.CloseSession(ctx))

	sess, err := s.GetSession(ctx, r.SessionID())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, sess.Status)
}

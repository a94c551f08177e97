// Package runner binds one session and one external agent into
// request/response cycles, enriching each prompt with stored context and
// recording the exchange in both stores.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/jsahoo/recall/internal/agent"
	"github.com/jsahoo/recall/internal/logging"
	"github.com/jsahoo/recall/internal/model"
	"github.com/jsahoo/recall/internal/store"
)

const (
	shortTermLimit   = 10
	longTermLimit    = 5
	historyLimit     = 10
	snapshotTTLHours = 24.0
)

// Options holds configuration overrides passed to New.
type Options struct {
	// SessionID reuses an existing session. An unknown id falls back to a
	// freshly created session.
	SessionID string
	// UserID tags new sessions and scopes long-term memory retrieval.
	UserID string
	// AgentName overrides the agent's own name on the session record.
	AgentName string
	// Logger receives runner diagnostics.
	Logger logging.Logger
}

// Runner orchestrates one session against one agent. Stores are injected;
// the runner owns no global state.
type Runner struct {
	agent     agent.Agent
	sessions  store.SessionStore
	memories  store.MemoryStore
	sessionID string
	userID    string
	logger    logging.Logger
}

// Result is the outcome of one Run call. TurnNumber is the assistant's turn.
type Result struct {
	Response     string        `json:"response"`
	SessionID    string        `json:"session_id"`
	TurnNumber   int           `json:"turn_number"`
	Events       []agent.Event `json:"events"`
	MemoriesUsed MemoriesUsed  `json:"memories_used"`
}

// MemoriesUsed counts the memories that informed the enriched prompt.
type MemoriesUsed struct {
	ShortTerm int `json:"short_term"`
	LongTerm  int `json:"long_term"`
}

// New resolves the session (reusing Options.SessionID when it exists,
// creating otherwise) and returns a ready Runner.
func New(ctx context.Context, a agent.Agent, sessions store.SessionStore, memories store.MemoryStore, optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	agentName := opts.AgentName
	if agentName == "" {
		agentName = a.Name()
	}

	sessionID := opts.SessionID
	if sessionID != "" {
		if _, err := sessions.GetSession(ctx, sessionID); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			opts.Logger.Warn("session not found, creating a new one", "session_id", sessionID)
			sessionID = ""
		}
	}
	if sessionID == "" {
		id, err := sessions.CreateSession(ctx, store.CreateSessionParams{
			UserID:    opts.UserID,
			AgentName: agentName,
		})
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		sessionID = id
	}

	return &Runner{
		agent:     a,
		sessions:  sessions,
		memories:  memories,
		sessionID: sessionID,
		userID:    opts.UserID,
		logger:    opts.Logger,
	}, nil
}

// SessionID returns the bound session id.
func (r *Runner) SessionID() string { return r.sessionID }

// Run executes one request/response cycle: gather context, assemble the
// enriched prompt, persist the user turn, invoke the agent, persist the
// assistant turn and a short-term snapshot of the exchange.
//
// The user turn is written before the agent call with a pending marker and
// upserted in place once the reply lands; an agent failure or cancellation
// leaves the turn explicitly pending rather than half of an exchange.
func (r *Runner) Run(ctx context.Context, prompt string, extra map[string]any) (*Result, error) {
	shortTerm, err := r.memories.RetrieveShortTerm(ctx, store.ShortTermQuery{
		SessionID: r.sessionID,
		Limit:     shortTermLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve short-term memory: %w", err)
	}

	var longTerm []model.LongTermMemory
	if r.userID != "" {
		longTerm, err = r.memories.RetrieveLongTerm(ctx, store.LongTermQuery{
			UserID: r.userID,
			Limit:  longTermLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("retrieve long-term memory: %w", err)
		}
	}

	history, err := r.sessions.History(ctx, store.HistoryParams{
		SessionID: r.sessionID,
		Limit:     historyLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve history: %w", err)
	}

	enriched := buildEnrichedPrompt(prompt, history, shortTerm, longTerm, extra)

	userMeta := map[string]any{"pending": true}
	if extra != nil {
		userMeta["context"] = extra
	}
	turn, err := r.sessions.AddTurn(ctx, store.AddTurnParams{
		SessionID: r.sessionID,
		Role:      model.RoleUser,
		Content:   prompt,
		Metadata:  userMeta,
	})
	if err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}

	r.logger.Debug("agent run start", "session_id", r.sessionID, "turn", turn, "agent", r.agent.Name())
	events, err := r.agent.Invoke(ctx, enriched)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", r.agent.Name(), err)
	}

	response := agent.ExtractText(events)

	// Settle the pending user turn in place (same session/turn/role key).
	delete(userMeta, "pending")
	if _, err := r.sessions.AddTurn(ctx, store.AddTurnParams{
		SessionID:  r.sessionID,
		Role:       model.RoleUser,
		Content:    prompt,
		TurnNumber: turn,
		Metadata:   userMeta,
	}); err != nil {
		return nil, fmt.Errorf("settle user turn: %w", err)
	}

	if _, err := r.sessions.AddTurn(ctx, store.AddTurnParams{
		SessionID:  r.sessionID,
		Role:       model.RoleAssistant,
		Content:    response,
		TurnNumber: turn + 1,
		Metadata:   map[string]any{"events_count": len(events)},
	}); err != nil {
		return nil, fmt.Errorf("persist assistant turn: %w", err)
	}

	ttl := snapshotTTLHours
	if _, err := r.memories.StoreShortTerm(ctx, store.ShortTermParams{
		SessionID:  r.sessionID,
		Key:        fmt.Sprintf("turn_%d", turn),
		Value:      map[string]any{"prompt": prompt, "response": response, "turn_number": turn},
		MemoryType: model.TypeInteraction,
		TTLHours:   &ttl,
	}); err != nil {
		return nil, fmt.Errorf("store interaction snapshot: %w", err)
	}

	r.logger.Info("agent run complete", "session_id", r.sessionID, "turn", turn)

	return &Result{
		Response:   response,
		SessionID:  r.sessionID,
		TurnNumber: turn + 1,
		Events:     events,
		MemoriesUsed: MemoriesUsed{
			ShortTerm: len(shortTerm),
			LongTerm:  len(longTerm),
		},
	}, nil
}

// StoreMemory stores a fact on behalf of the bound session and user.
// Long-term by default; short-term when longTerm is false.
func (r *Runner) StoreMemory(ctx context.Context, key string, value any, memoryType string, importance float64, longTerm bool) (string, error) {
	if longTerm {
		return r.memories.StoreLongTerm(ctx, store.LongTermParams{
			Key:        key,
			Value:      value,
			UserID:     r.userID,
			SessionID:  r.sessionID,
			MemoryType: memoryType,
			Importance: &importance,
		})
	}
	return r.memories.StoreShortTerm(ctx, store.ShortTermParams{
		SessionID:  r.sessionID,
		Key:        key,
		Value:      value,
		MemoryType: memoryType,
	})
}

// CloseSession marks the bound session completed.
func (r *Runner) CloseSession(ctx context.Context) error {
	return r.sessions.CloseSession(ctx, r.sessionID)
}

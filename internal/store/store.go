// Package store provides the session and memory storage interfaces and their
// SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jsahoo/recall/internal/model"
)

var (
	// ErrNotFound is returned when a session or memory required by an
	// operation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned for missing or out-of-range fields.
	ErrInvalid = errors.New("invalid argument")
)

// CreateSessionParams holds parameters for creating a session.
type CreateSessionParams struct {
	UserID    string
	AgentName string
	Metadata  map[string]any
}

// UpdateSessionParams holds a partial session update. Empty fields are left
// untouched; updated_at is refreshed whenever any field changes.
type UpdateSessionParams struct {
	SessionID string
	Status    string
	Metadata  map[string]any
}

// AddTurnParams holds parameters for appending a conversation turn.
// TurnNumber 0 allocates the next contiguous number for the session;
// a positive TurnNumber upserts on (session, turn_number, role).
type AddTurnParams struct {
	SessionID  string
	Role       string
	Content    string
	TurnNumber int
	Metadata   map[string]any
}

// HistoryParams holds parameters for reading conversation history.
// BeforeTurn > 0 strictly excludes turns at or after that number.
type HistoryParams struct {
	SessionID  string
	Limit      int
	BeforeTurn int
}

// SessionsByUserParams holds parameters for listing a user's sessions.
type SessionsByUserParams struct {
	UserID string
	Status string
	Limit  int
}

// SessionStore persists sessions and their ordered turn history.
type SessionStore interface {
	// CreateSession creates a new session with status "active".
	CreateSession(ctx context.Context, p CreateSessionParams) (string, error)

	// GetSession returns a session or ErrNotFound.
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)

	// UpdateSession applies a partial update.
	UpdateSession(ctx context.Context, p UpdateSessionParams) error

	// AddTurn appends (or upserts) a turn and returns its turn number.
	// It fails with ErrNotFound when the session does not exist.
	AddTurn(ctx context.Context, p AddTurnParams) (int, error)

	// History returns turns ascending by turn number.
	History(ctx context.Context, p HistoryParams) ([]model.Turn, error)

	// SessionsByUser returns sessions ordered by creation time, newest first.
	SessionsByUser(ctx context.Context, p SessionsByUserParams) ([]model.Session, error)

	// CloseSession sets status "completed".
	CloseSession(ctx context.Context, sessionID string) error

	// DeleteSession removes a session and cascades removal of its turns.
	DeleteSession(ctx context.Context, sessionID string) error
}

// LongTermParams holds parameters for storing a long-term memory.
// Importance nil defaults to model.DefaultImportance.
type LongTermParams struct {
	Key        string
	Value      any
	UserID     string
	SessionID  string
	MemoryType string // default "fact"
	Importance *float64
	ExpiresAt  *time.Time
	Metadata   map[string]any
}

// LongTermQuery filters long-term retrieval. All supplied filters are
// conjunctive; UserID/SessionID filters also admit rows with a null value on
// that column (global memories match any filter value).
type LongTermQuery struct {
	Key           string
	UserID        string
	SessionID     string
	MemoryType    string
	MinImportance float64
	Limit         int
}

// ShortTermParams holds parameters for storing a short-term memory.
// TTLHours nil applies the 24h default; a zero TTL expires immediately.
// NoExpiry disables expiry outright.
type ShortTermParams struct {
	SessionID  string
	Key        string
	Value      any
	MemoryType string // default "context"
	TTLHours   *float64
	NoExpiry   bool
	Metadata   map[string]any
}

// ShortTermQuery filters short-term retrieval within one session.
type ShortTermQuery struct {
	SessionID  string
	Key        string
	MemoryType string
	Limit      int
}

// AssociateParams holds parameters for linking two long-term memories.
// Re-associating the same unordered pair replaces type and strength.
type AssociateParams struct {
	MemoryID1       string
	MemoryID2       string
	AssociationType string // default "related"
	Strength        *float64
}

// AssociatedQuery filters neighbor lookup around one memory.
type AssociatedQuery struct {
	MemoryID        string
	AssociationType string
	MinStrength     float64
}

// MemoryStore persists short-term and long-term memories plus the
// association graph between long-term memories.
type MemoryStore interface {
	// StoreLongTerm stores a long-term memory and returns its id.
	StoreLongTerm(ctx context.Context, p LongTermParams) (string, error)

	// RetrieveLongTerm returns matching, unexpired long-term memories ordered
	// by importance descending then most recently accessed. Every returned
	// row has its access counter incremented and accessed_at refreshed.
	RetrieveLongTerm(ctx context.Context, q LongTermQuery) ([]model.LongTermMemory, error)

	// StoreShortTerm stores a short-term memory and returns its id.
	StoreShortTerm(ctx context.Context, p ShortTermParams) (string, error)

	// RetrieveShortTerm returns matching, unexpired short-term memories for a
	// session, newest first. No access tracking.
	RetrieveShortTerm(ctx context.Context, q ShortTermQuery) ([]model.ShortTermMemory, error)

	// Associate upserts an association edge on the unordered id pair.
	Associate(ctx context.Context, p AssociateParams) error

	// Associated returns neighboring long-term memories matched via either
	// side of a qualifying edge, ordered by strength descending.
	Associated(ctx context.Context, q AssociatedQuery) ([]model.AssociatedMemory, error)

	// UpdateImportance sets a memory's importance score in [0,1].
	UpdateImportance(ctx context.Context, memoryID string, importance float64) error

	// CleanupExpired physically deletes expired short-term memories and
	// returns the count removed. Long-term memory is never purged.
	CleanupExpired(ctx context.Context) (int64, error)
}

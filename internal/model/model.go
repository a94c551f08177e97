// Package model defines the core session and memory data types.
package model

import "time"

// Session is one durable conversational thread.
type Session struct {
	ID        string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	AgentName string         `json:"agent_name,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Status    string         `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Turn is one message within a session's ordered history.
type Turn struct {
	SessionID  string         `json:"session_id"`
	TurnNumber int            `json:"turn_number"`
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// LongTermMemory is a cross-session key/value fact, importance-ranked and
// access-tracked. Value holds the decoded payload; unparseable stored values
// surface as their raw string.
type LongTermMemory struct {
	ID          string         `json:"memory_id"`
	UserID      string         `json:"user_id,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	Key         string         `json:"key"`
	Value       any            `json:"value"`
	MemoryType  string         `json:"memory_type"`
	Importance  float64        `json:"importance"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	AccessedAt  time.Time      `json:"accessed_at"`
	AccessCount int            `json:"access_count"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ShortTermMemory is a session-scoped, TTL-bound key/value fact.
type ShortTermMemory struct {
	ID         string         `json:"memory_id"`
	SessionID  string         `json:"session_id"`
	Key        string         `json:"key"`
	Value      any            `json:"value"`
	MemoryType string         `json:"memory_type"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Association is a weighted, undirected link between two long-term memories.
// The pair {MemoryID1, MemoryID2} is unique regardless of order.
type Association struct {
	MemoryID1       string    `json:"memory_id_1"`
	MemoryID2       string    `json:"memory_id_2"`
	AssociationType string    `json:"association_type"`
	Strength        float64   `json:"strength"`
	CreatedAt       time.Time `json:"created_at"`
}

// AssociatedMemory is a long-term memory reached through an association edge.
type AssociatedMemory struct {
	LongTermMemory
	AssociationType string  `json:"association_type"`
	Strength        float64 `json:"strength"`
}

// Session status values. The set is conventional, not enforced.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

// Conversation roles by convention.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Common memory types. Open vocabulary; callers may use their own.
const (
	TypeFact        = "fact"
	TypePreference  = "preference"
	TypeSkill       = "skill"
	TypeContext     = "context"
	TypeEvent       = "event"
	TypeState       = "state"
	TypeInteraction = "interaction"
)

// DefaultImportance is applied to long-term memories stored without an
// explicit importance score.
const DefaultImportance = 0.5

// DefaultTTLHours is the default short-term memory lifetime.
const DefaultTTLHours = 24.0

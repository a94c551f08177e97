package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/jsahoo/recall/internal/logging"
)

// timeFormat is RFC3339 UTC with fixed-width nanoseconds so that
// lexicographic comparison in SQL equals chronological comparison.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements SessionStore and MemoryStore on a single SQLite
// database.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
	logger  logging.Logger
}

var (
	_ SessionStore = (*SQLiteStore)(nil)
	_ MemoryStore  = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, optFns ...func(s *SQLiteStore)) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// WithLogger attaches a logger to the store.
func WithLogger(l logging.Logger) func(s *SQLiteStore) {
	return func(s *SQLiteStore) { s.logger = l }
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id    TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		metadata   TEXT
	);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id    TEXT,
		agent_name TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'active',
		metadata   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

	CREATE TABLE IF NOT EXISTS conversation_history (
		session_id  TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
		turn_number INTEGER NOT NULL,
		role        TEXT NOT NULL,
		content     TEXT NOT NULL,
		timestamp   TEXT NOT NULL,
		metadata    TEXT,
		UNIQUE(session_id, turn_number, role)
	);
	CREATE INDEX IF NOT EXISTS idx_history_session ON conversation_history(session_id);

	CREATE TABLE IF NOT EXISTS long_term_memory (
		memory_id    TEXT PRIMARY KEY,
		user_id      TEXT,
		session_id   TEXT,
		key          TEXT NOT NULL,
		value        TEXT NOT NULL,
		memory_type  TEXT NOT NULL DEFAULT 'fact',
		importance   REAL NOT NULL DEFAULT 0.5,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		accessed_at  TEXT NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0,
		expires_at   TEXT,
		metadata     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_ltm_user ON long_term_memory(user_id);
	CREATE INDEX IF NOT EXISTS idx_ltm_session ON long_term_memory(session_id);
	CREATE INDEX IF NOT EXISTS idx_ltm_key ON long_term_memory(key);
	CREATE INDEX IF NOT EXISTS idx_ltm_type ON long_term_memory(memory_type);

	CREATE TABLE IF NOT EXISTS short_term_memory (
		memory_id   TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		key         TEXT NOT NULL,
		value       TEXT NOT NULL,
		memory_type TEXT NOT NULL DEFAULT 'context',
		created_at  TEXT NOT NULL,
		expires_at  TEXT,
		metadata    TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_stm_session ON short_term_memory(session_id);
	CREATE INDEX IF NOT EXISTS idx_stm_expires ON short_term_memory(expires_at);

	CREATE TABLE IF NOT EXISTS memory_associations (
		memory_id_1      TEXT NOT NULL REFERENCES long_term_memory(memory_id) ON DELETE CASCADE,
		memory_id_2      TEXT NOT NULL REFERENCES long_term_memory(memory_id) ON DELETE CASCADE,
		association_type TEXT NOT NULL DEFAULT 'related',
		strength         REAL NOT NULL DEFAULT 0.5,
		created_at       TEXT NOT NULL,
		UNIQUE(memory_id_1, memory_id_2)
	);
	CREATE INDEX IF NOT EXISTS idx_assoc_m2 ON memory_associations(memory_id_2);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// newSessionID returns a fresh UUID for a session.
func (s *SQLiteStore) newSessionID() string {
	return uuid.NewString()
}

// newMemoryID returns a fresh ULID for a memory row.
func (s *SQLiteStore) newMemoryID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// encodeValue serializes an arbitrary value for storage. Strings are stored
// raw; everything else is JSON.
func encodeValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize value: %w", err)
	}
	return string(b), nil
}

// decodeValue deserializes a stored value. A value that does not parse as
// JSON is returned as the raw string; reads never fail on a stored value.
func decodeValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func encodeMetadata(m map[string]any) (*string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("serialize metadata: %w", err)
	}
	s := string(b)
	return &s, nil
}

func decodeMetadata(raw sql.NullString) map[string]any {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		return nil
	}
	return m
}

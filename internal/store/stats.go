package store

import (
	"context"
	"os"
	"time"
)

// Stats holds database statistics.
type Stats struct {
	DBPath           string `json:"db_path"`
	DBSizeBytes      int64  `json:"db_size_bytes"`
	Sessions         int    `json:"sessions"`
	ActiveSessions   int    `json:"active_sessions"`
	Turns            int    `json:"turns"`
	LongTermMemories int    `json:"long_term_memories"`
	ShortTermLive    int    `json:"short_term_live"`
	ShortTermExpired int    `json:"short_term_expired"`
	Associations     int    `json:"associations"`
}

// Stats returns database statistics. ShortTermExpired counts rows past
// expiry that are still awaiting cleanup.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	now := formatTime(time.Now())

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&st.Sessions)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE status = 'active'`).Scan(&st.ActiveSessions)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversation_history`).Scan(&st.Turns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM long_term_memory`).Scan(&st.LongTermMemories)
	s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM short_term_memory WHERE expires_at IS NULL OR expires_at > ?`, now).Scan(&st.ShortTermLive)
	s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM short_term_memory WHERE expires_at IS NOT NULL AND expires_at <= ?`, now).Scan(&st.ShortTermExpired)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_associations`).Scan(&st.Associations)

	return st, nil
}

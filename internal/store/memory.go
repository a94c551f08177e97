package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jsahoo/recall/internal/model"
)

// StoreLongTerm stores a long-term memory and returns its id.
func (s *SQLiteStore) StoreLongTerm(ctx context.Context, p LongTermParams) (string, error) {
	if p.Key == "" {
		return "", fmt.Errorf("key is required: %w", ErrInvalid)
	}

	importance := model.DefaultImportance
	if p.Importance != nil {
		importance = *p.Importance
	}
	if importance < 0 || importance > 1 {
		return "", fmt.Errorf("importance %v outside [0,1]: %w", importance, ErrInvalid)
	}

	memoryType := p.MemoryType
	if memoryType == "" {
		memoryType = model.TypeFact
	}

	value, err := encodeValue(p.Value)
	if err != nil {
		return "", err
	}
	metaPtr, err := encodeMetadata(p.Metadata)
	if err != nil {
		return "", err
	}

	var expiresAt *string
	if p.ExpiresAt != nil {
		exp := formatTime(*p.ExpiresAt)
		expiresAt = &exp
	}

	id := s.newMemoryID()
	now := formatTime(time.Now())

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO long_term_memory
		 (memory_id, user_id, session_id, key, value, memory_type, importance,
		  created_at, updated_at, accessed_at, access_count, expires_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, nullable(p.UserID), nullable(p.SessionID), p.Key, value, memoryType,
		importance, now, now, now, expiresAt, metaPtr)
	if err != nil {
		return "", fmt.Errorf("insert long-term memory: %w", err)
	}

	s.logger.Debug("long-term memory stored", "memory_id", id, "key", p.Key, "type", memoryType)
	return id, nil
}

// RetrieveLongTerm returns matching, unexpired long-term memories ordered by
// importance descending then most recently accessed. Every returned row has
// its access counter incremented and accessed_at refreshed as part of the
// read.
func (s *SQLiteStore) RetrieveLongTerm(ctx context.Context, q LongTermQuery) ([]model.LongTermMemory, error) {
	now := formatTime(time.Now())
	where := []string{"(expires_at IS NULL OR expires_at > ?)", "importance >= ?"}
	args := []any{now, q.MinImportance}

	if q.Key != "" {
		where = append(where, "key = ?")
		args = append(args, q.Key)
	}
	if q.UserID != "" {
		where = append(where, "(user_id = ? OR user_id IS NULL)")
		args = append(args, q.UserID)
	}
	if q.SessionID != "" {
		where = append(where, "(session_id = ? OR session_id IS NULL)")
		args = append(args, q.SessionID)
	}
	if q.MemoryType != "" {
		where = append(where, "memory_type = ?")
		args = append(args, q.MemoryType)
	}

	query := `SELECT memory_id, user_id, session_id, key, value, memory_type, importance,
	                 created_at, updated_at, accessed_at, access_count, expires_at, metadata
	          FROM long_term_memory WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY importance DESC, accessed_at DESC, rowid DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var memories []model.LongTermMemory
	for rows.Next() {
		m, err := scanLongTerm(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Access tracking is part of the read: the returned rows carry the
	// pre-increment counts.
	for _, m := range memories {
		if _, err := tx.ExecContext(ctx,
			`UPDATE long_term_memory
			 SET accessed_at = ?, access_count = access_count + 1
			 WHERE memory_id = ?`, now, m.ID); err != nil {
			return nil, fmt.Errorf("track access: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return memories, nil
}

// StoreShortTerm stores a session-scoped short-term memory and returns its
// id. A nil TTL applies the 24h default; a zero TTL produces an entry that is
// already expired. NoExpiry disables expiry.
func (s *SQLiteStore) StoreShortTerm(ctx context.Context, p ShortTermParams) (string, error) {
	if p.SessionID == "" {
		return "", fmt.Errorf("session id is required: %w", ErrInvalid)
	}
	if p.Key == "" {
		return "", fmt.Errorf("key is required: %w", ErrInvalid)
	}

	memoryType := p.MemoryType
	if memoryType == "" {
		memoryType = model.TypeContext
	}

	value, err := encodeValue(p.Value)
	if err != nil {
		return "", err
	}
	metaPtr, err := encodeMetadata(p.Metadata)
	if err != nil {
		return "", err
	}

	now := time.Now()
	var expiresAt *string
	if !p.NoExpiry {
		ttl := model.DefaultTTLHours
		if p.TTLHours != nil {
			ttl = *p.TTLHours
		}
		exp := formatTime(now.Add(time.Duration(ttl * float64(time.Hour))))
		expiresAt = &exp
	}

	id := s.newMemoryID()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO short_term_memory
		 (memory_id, session_id, key, value, memory_type, created_at, expires_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.SessionID, p.Key, value, memoryType, formatTime(now), expiresAt, metaPtr)
	if err != nil {
		return "", fmt.Errorf("insert short-term memory: %w", err)
	}

	s.logger.Debug("short-term memory stored", "memory_id", id, "session_id", p.SessionID, "key", p.Key)
	return id, nil
}

// RetrieveShortTerm returns matching, unexpired short-term memories for a
// session, most recent first.
func (s *SQLiteStore) RetrieveShortTerm(ctx context.Context, q ShortTermQuery) ([]model.ShortTermMemory, error) {
	if q.SessionID == "" {
		return nil, fmt.Errorf("session id is required: %w", ErrInvalid)
	}

	query := `SELECT memory_id, session_id, key, value, memory_type, created_at, expires_at, metadata
	          FROM short_term_memory
	          WHERE session_id = ? AND (expires_at IS NULL OR expires_at > ?)`
	args := []any{q.SessionID, formatTime(time.Now())}

	if q.Key != "" {
		query += ` AND key = ?`
		args = append(args, q.Key)
	}
	if q.MemoryType != "" {
		query += ` AND memory_type = ?`
		args = append(args, q.MemoryType)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.ShortTermMemory
	for rows.Next() {
		var m model.ShortTermMemory
		var value, created string
		var expires, meta sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Key, &value, &m.MemoryType, &created, &expires, &meta); err != nil {
			return nil, err
		}
		m.Value = decodeValue(value)
		m.CreatedAt = parseTime(created)
		if expires.Valid {
			t := parseTime(expires.String)
			m.ExpiresAt = &t
		}
		m.Metadata = decodeMetadata(meta)
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// UpdateImportance sets the importance score of a long-term memory.
func (s *SQLiteStore) UpdateImportance(ctx context.Context, memoryID string, importance float64) error {
	if importance < 0 || importance > 1 {
		return fmt.Errorf("importance %v outside [0,1]: %w", importance, ErrInvalid)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE long_term_memory SET importance = ?, updated_at = ? WHERE memory_id = ?`,
		importance, formatTime(time.Now()), memoryID)
	if err != nil {
		return fmt.Errorf("update importance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memory %s: %w", memoryID, ErrNotFound)
	}
	return nil
}

// CleanupExpired physically deletes expired short-term memories and returns
// the count removed. Expired long-term memory is only ever filtered at read
// time, never purged.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM short_term_memory WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("cleanup expired: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("expired short-term memories removed", "count", n)
	}
	return n, nil
}

func scanLongTerm(row scanner) (model.LongTermMemory, error) {
	var m model.LongTermMemory
	var userID, sessionID, expires, meta sql.NullString
	var value, created, updated, accessed string

	err := row.Scan(&m.ID, &userID, &sessionID, &m.Key, &value, &m.MemoryType, &m.Importance,
		&created, &updated, &accessed, &m.AccessCount, &expires, &meta)
	if err != nil {
		return m, err
	}

	m.UserID = userID.String
	m.SessionID = sessionID.String
	m.Value = decodeValue(value)
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	m.AccessedAt = parseTime(accessed)
	if expires.Valid {
		t := parseTime(expires.String)
		m.ExpiresAt = &t
	}
	m.Metadata = decodeMetadata(meta)
	return m, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jsahoo/recall/internal/model"
)

// Associate upserts an association edge between two long-term memories. The
// pair is unordered: the ids are normalized before insert so re-associating
// (b, a) replaces the edge created for (a, b).
func (s *SQLiteStore) Associate(ctx context.Context, p AssociateParams) error {
	if p.MemoryID1 == "" || p.MemoryID2 == "" {
		return fmt.Errorf("both memory ids are required: %w", ErrInvalid)
	}

	strength := model.DefaultImportance
	if p.Strength != nil {
		strength = *p.Strength
	}
	if strength < 0 || strength > 1 {
		return fmt.Errorf("strength %v outside [0,1]: %w", strength, ErrInvalid)
	}

	associationType := p.AssociationType
	if associationType == "" {
		associationType = "related"
	}

	id1, id2 := p.MemoryID1, p.MemoryID2
	if id2 < id1 {
		id1, id2 = id2, id1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_associations (memory_id_1, memory_id_2, association_type, strength, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(memory_id_1, memory_id_2)
		 DO UPDATE SET association_type = excluded.association_type, strength = excluded.strength`,
		id1, id2, associationType, strength, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("associate memories: %w", err)
	}

	s.logger.Debug("memories associated", "memory_id_1", id1, "memory_id_2", id2, "type", associationType)
	return nil
}

// Associated returns the long-term memories linked to memoryID via either
// side of a qualifying edge, ordered by strength descending.
func (s *SQLiteStore) Associated(ctx context.Context, q AssociatedQuery) ([]model.AssociatedMemory, error) {
	query := `SELECT m.memory_id, m.user_id, m.session_id, m.key, m.value, m.memory_type, m.importance,
	                 m.created_at, m.updated_at, m.accessed_at, m.access_count, m.expires_at, m.metadata,
	                 a.association_type, a.strength
	          FROM long_term_memory m
	          JOIN memory_associations a ON (
	              (a.memory_id_1 = ? AND a.memory_id_2 = m.memory_id) OR
	              (a.memory_id_2 = ? AND a.memory_id_1 = m.memory_id)
	          )
	          WHERE a.strength >= ?`
	args := []any{q.MemoryID, q.MemoryID, q.MinStrength}

	if q.AssociationType != "" {
		query += ` AND a.association_type = ?`
		args = append(args, q.AssociationType)
	}
	query += ` ORDER BY a.strength DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.AssociatedMemory
	for rows.Next() {
		var am model.AssociatedMemory
		var userID, sessionID, expires, meta sql.NullString
		var value, created, updated, accessed string

		err := rows.Scan(&am.ID, &userID, &sessionID, &am.Key, &value, &am.MemoryType, &am.Importance,
			&created, &updated, &accessed, &am.AccessCount, &expires, &meta,
			&am.AssociationType, &am.Strength)
		if err != nil {
			return nil, err
		}

		am.UserID = userID.String
		am.SessionID = sessionID.String
		am.Value = decodeValue(value)
		am.CreatedAt = parseTime(created)
		am.UpdatedAt = parseTime(updated)
		am.AccessedAt = parseTime(accessed)
		if expires.Valid {
			t := parseTime(expires.String)
			am.ExpiresAt = &t
		}
		am.Metadata = decodeMetadata(meta)
		memories = append(memories, am)
	}
	return memories, rows.Err()
}

package store

import (
	"context"

	"github.com/jsahoo/recall/internal/model"
)

// ExportLongTerm returns all long-term memories, optionally filtered by user,
// without touching access counters. Expired rows are included so an export
// is a faithful copy of the table.
func (s *SQLiteStore) ExportLongTerm(ctx context.Context, userID string) ([]model.LongTermMemory, error) {
	query := `SELECT memory_id, user_id, session_id, key, value, memory_type, importance,
	                 created_at, updated_at, accessed_at, access_count, expires_at, metadata
	          FROM long_term_memory`
	var args []any

	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY key, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.LongTermMemory
	for rows.Next() {
		m, err := scanLongTerm(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// ImportLongTerm stores memories from an export under fresh ids. Importance
// and type carry over; access counters restart.
func (s *SQLiteStore) ImportLongTerm(ctx context.Context, memories []model.LongTermMemory) (int, error) {
	imported := 0
	for _, m := range memories {
		imp := m.Importance
		_, err := s.StoreLongTerm(ctx, LongTermParams{
			Key:        m.Key,
			Value:      m.Value,
			UserID:     m.UserID,
			SessionID:  m.SessionID,
			MemoryType: m.MemoryType,
			Importance: &imp,
			ExpiresAt:  m.ExpiresAt,
			Metadata:   m.Metadata,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

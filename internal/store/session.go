package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jsahoo/recall/internal/model"
)

// CreateSession creates a new session with status "active".
func (s *SQLiteStore) CreateSession(ctx context.Context, p CreateSessionParams) (string, error) {
	id := s.newSessionID()
	now := formatTime(time.Now())

	metaPtr, err := encodeMetadata(p.Metadata)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, agent_name, created_at, updated_at, status, metadata)
		 VALUES (?, ?, ?, ?, ?, 'active', ?)`,
		id, nullable(p.UserID), nullable(p.AgentName), now, now, metaPtr)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	s.logger.Info("session created", "session_id", id, "user_id", p.UserID, "agent", p.AgentName)
	return id, nil
}

// GetSession returns a session or ErrNotFound.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required: %w", ErrInvalid)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, agent_name, created_at, updated_at, status, metadata
		 FROM sessions WHERE session_id = ?`, sessionID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateSession applies a partial update. Fields left empty are untouched;
// updated_at is refreshed whenever any field changes.
func (s *SQLiteStore) UpdateSession(ctx context.Context, p UpdateSessionParams) error {
	if p.SessionID == "" {
		return fmt.Errorf("session id is required: %w", ErrInvalid)
	}

	var sets []string
	var args []any

	if p.Status != "" {
		sets = append(sets, "status = ?")
		args = append(args, p.Status)
	}
	if p.Metadata != nil {
		metaPtr, err := encodeMetadata(p.Metadata)
		if err != nil {
			return err
		}
		sets = append(sets, "metadata = ?")
		args = append(args, metaPtr)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), p.SessionID)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE sessions SET %s WHERE session_id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", p.SessionID, ErrNotFound)
	}
	return nil
}

// AddTurn appends a turn. When TurnNumber is 0, the next contiguous number is
// allocated and inserted in a single statement so concurrent writers on the
// same session cannot produce gaps or duplicates. A positive TurnNumber
// upserts on (session_id, turn_number, role).
func (s *SQLiteStore) AddTurn(ctx context.Context, p AddTurnParams) (int, error) {
	if p.SessionID == "" {
		return 0, fmt.Errorf("session id is required: %w", ErrInvalid)
	}
	if p.Role == "" {
		return 0, fmt.Errorf("role is required: %w", ErrInvalid)
	}

	metaPtr, err := encodeMetadata(p.Metadata)
	if err != nil {
		return 0, err
	}
	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Never create a session as a side effect of appending a turn.
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE session_id = ?`, p.SessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("session %s: %w", p.SessionID, ErrNotFound)
	}
	if err != nil {
		return 0, err
	}

	turn := p.TurnNumber
	if turn > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_history (session_id, turn_number, role, content, timestamp, metadata)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(session_id, turn_number, role)
			 DO UPDATE SET content = excluded.content, timestamp = excluded.timestamp, metadata = excluded.metadata`,
			p.SessionID, turn, p.Role, p.Content, now, metaPtr)
		if err != nil {
			return 0, fmt.Errorf("insert turn: %w", err)
		}
	} else {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO conversation_history (session_id, turn_number, role, content, timestamp, metadata)
			 SELECT ?1, COALESCE(MAX(turn_number), 0) + 1, ?2, ?3, ?4, ?5
			 FROM conversation_history WHERE session_id = ?1
			 RETURNING turn_number`,
			p.SessionID, p.Role, p.Content, now, metaPtr).Scan(&turn)
		if err != nil {
			return 0, fmt.Errorf("insert turn: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE session_id = ?`, now, p.SessionID); err != nil {
		return 0, fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.logger.Debug("turn added", "session_id", p.SessionID, "turn", turn, "role", p.Role)
	return turn, nil
}

// History returns turns for a session ascending by turn number. An unknown
// session yields an empty result, not an error.
func (s *SQLiteStore) History(ctx context.Context, p HistoryParams) ([]model.Turn, error) {
	query := `SELECT session_id, turn_number, role, content, timestamp, metadata
	          FROM conversation_history WHERE session_id = ?`
	args := []any{p.SessionID}

	if p.BeforeTurn > 0 {
		query += ` AND turn_number < ?`
		args = append(args, p.BeforeTurn)
	}
	query += ` ORDER BY turn_number ASC`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var t model.Turn
		var ts string
		var meta sql.NullString
		if err := rows.Scan(&t.SessionID, &t.TurnNumber, &t.Role, &t.Content, &ts, &meta); err != nil {
			return nil, err
		}
		t.Timestamp = parseTime(ts)
		t.Metadata = decodeMetadata(meta)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// SessionsByUser returns a user's sessions, most recently created first.
func (s *SQLiteStore) SessionsByUser(ctx context.Context, p SessionsByUserParams) ([]model.Session, error) {
	query := `SELECT session_id, user_id, agent_name, created_at, updated_at, status, metadata
	          FROM sessions WHERE user_id = ?`
	args := []any{p.UserID}

	if p.Status != "" {
		query += ` AND status = ?`
		args = append(args, p.Status)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// CloseSession marks a session completed.
func (s *SQLiteStore) CloseSession(ctx context.Context, sessionID string) error {
	if err := s.UpdateSession(ctx, UpdateSessionParams{SessionID: sessionID, Status: model.StatusCompleted}); err != nil {
		return err
	}
	s.logger.Info("session closed", "session_id", sessionID)
	return nil
}

// DeleteSession removes a session; its turns are removed by cascade.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	s.logger.Info("session deleted", "session_id", sessionID)
	return nil
}

// RegisterUser records a user in the optional multi-user registry. Repeated
// registration refreshes metadata only.
func (s *SQLiteStore) RegisterUser(ctx context.Context, userID string, metadata map[string]any) error {
	if userID == "" {
		return fmt.Errorf("user id is required: %w", ErrInvalid)
	}
	metaPtr, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, created_at, metadata) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET metadata = excluded.metadata`,
		userID, formatTime(time.Now()), metaPtr)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

func scanSession(row scanner) (*model.Session, error) {
	var sess model.Session
	var userID, agentName, meta sql.NullString
	var created, updated string

	err := row.Scan(&sess.ID, &userID, &agentName, &created, &updated, &sess.Status, &meta)
	if err != nil {
		return nil, err
	}

	sess.UserID = userID.String
	sess.AgentName = agentName.String
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	sess.Metadata = decodeMetadata(meta)
	return &sess, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

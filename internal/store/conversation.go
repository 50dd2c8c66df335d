package store

import (
	"fmt"

	"dataassist/internal/types"
)

// ConversationStore persists chat turns keyed by scope (task id, email
// thread id, or calendar domain).
type ConversationStore struct {
	db *DB
}

// NewConversationStore builds the store over the shared handle.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

var _ types.ConversationLog = (*ConversationStore)(nil)

// Append records one turn at the end of the scope's history.
func (s *ConversationStore) Append(scopeKey string, turn types.LoggedTurn) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.db.now()
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO conversation_turns(scope_key, role, content, created_at) VALUES (?, ?, ?, ?)`,
		scopeKey, string(turn.Role), turn.Content, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// List returns up to limit most recent turns for the scope, oldest
// first. limit <= 0 means no limit.
func (s *ConversationStore) List(scopeKey string, limit int) ([]types.LoggedTurn, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	query := `SELECT role, content, created_at FROM (
		SELECT id, role, content, created_at FROM conversation_turns
		WHERE scope_key = ? ORDER BY id DESC`
	args := []interface{}{scopeKey}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	query += `) ORDER BY id ASC`

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var out []types.LoggedTurn
	for rows.Next() {
		var turn types.LoggedTurn
		var role string
		if err := rows.Scan(&role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Role = types.Role(role)
		out = append(out, turn)
	}
	return out, rows.Err()
}

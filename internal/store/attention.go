package store

import (
	"database/sql"
	"fmt"

	"dataassist/internal/analyzer"
	"dataassist/internal/derr"
)

// attentionTransitions maps each attention status to the statuses it
// may move to. Snoozed items wake back to active; everything else is
// terminal.
var attentionTransitions = map[string][]string{
	analyzer.AttentionActive: {
		analyzer.AttentionDismissed,
		analyzer.AttentionSnoozed,
		analyzer.AttentionTaskCreated,
	},
	analyzer.AttentionSnoozed: {
		analyzer.AttentionActive,
		analyzer.AttentionDismissed,
		analyzer.AttentionTaskCreated,
	},
}

// AttentionStore persists attention items.
type AttentionStore struct {
	db *DB
}

// NewAttentionStore builds the store over the shared handle.
func NewAttentionStore(db *DB) *AttentionStore {
	return &AttentionStore{db: db}
}

// Save inserts an item; an existing id is replaced wholesale.
func (s *AttentionStore) Save(item analyzer.AttentionItem) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	_, err := s.db.conn.Exec(`
		INSERT OR REPLACE INTO attention_items
			(id, account, email_id, from_address, subject, reason, evidence,
			 status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Account, item.EmailID, item.From, item.Subject,
		string(item.Reason), item.Evidence, item.Status, item.CreatedAt, item.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save attention item: %w", err)
	}
	return nil
}

// Get returns one item by id, first dismissing it if its TTL passed.
func (s *AttentionStore) Get(id string) (*analyzer.AttentionItem, error) {
	if err := s.expireOverdue(); err != nil {
		return nil, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	row := s.db.conn.QueryRow(`
		SELECT id, account, email_id, from_address, subject, reason, evidence,
		       status, created_at, expires_at
		FROM attention_items WHERE id = ?`, id)
	item, err := scanAttention(row)
	if err == sql.ErrNoRows {
		return nil, derr.NewNotFoundError("attention item", id)
	}
	return item, err
}

// ListActive returns unexpired active items for an account, newest
// first.
func (s *AttentionStore) ListActive(account string) ([]analyzer.AttentionItem, error) {
	if err := s.expireOverdue(); err != nil {
		return nil, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rows, err := s.db.conn.Query(`
		SELECT id, account, email_id, from_address, subject, reason, evidence,
		       status, created_at, expires_at
		FROM attention_items
		WHERE account = ? AND status = 'active'
		ORDER BY created_at DESC`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list attention items: %w", err)
	}
	defer rows.Close()

	var out []analyzer.AttentionItem
	for rows.Next() {
		item, err := scanAttention(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// SetStatus moves an item through the allowed transition map.
func (s *AttentionStore) SetStatus(id, status string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var current string
	row := s.db.conn.QueryRow(`SELECT status FROM attention_items WHERE id = ?`, id)
	if err := row.Scan(&current); err == sql.ErrNoRows {
		return derr.NewNotFoundError("attention item", id)
	} else if err != nil {
		return fmt.Errorf("failed to read attention item: %w", err)
	}

	if !transitionAllowed(attentionTransitions, current, status) {
		return fmt.Errorf("attention item %s cannot move from %s to %s: %w", id, current, status, ErrInvalidTransition)
	}

	_, err := s.db.conn.Exec(`UPDATE attention_items SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update attention status: %w", err)
	}
	return nil
}

// expireOverdue dismisses active items past their TTL.
func (s *AttentionStore) expireOverdue() error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	_, err := s.db.conn.Exec(
		`UPDATE attention_items SET status = 'dismissed' WHERE status = 'active' AND expires_at < ?`,
		s.db.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to expire attention items: %w", err)
	}
	return nil
}

func scanAttention(row rowScanner) (*analyzer.AttentionItem, error) {
	var item analyzer.AttentionItem
	var reason string
	err := row.Scan(&item.ID, &item.Account, &item.EmailID, &item.From,
		&item.Subject, &reason, &item.Evidence, &item.Status,
		&item.CreatedAt, &item.ExpiresAt)
	if err != nil {
		return nil, err
	}
	item.Reason = analyzer.AttentionReason(reason)
	return &item, nil
}

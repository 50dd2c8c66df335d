package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dataassist/internal/analyzer"
	"dataassist/internal/derr"
)

// ErrInvalidTransition marks a status change the transition maps do not
// allow.
var ErrInvalidTransition = errors.New("status transition not allowed")

// suggestionTransitions maps each status to the statuses it may move
// to. Pending suggestions resolve exactly once.
var suggestionTransitions = map[string][]string{
	analyzer.SuggestionPending: {
		analyzer.SuggestionApproved,
		analyzer.SuggestionRejected,
		analyzer.SuggestionExpired,
	},
}

// SuggestionStore persists rule suggestions.
type SuggestionStore struct {
	db *DB
}

// NewSuggestionStore builds the store over the shared handle.
func NewSuggestionStore(db *DB) *SuggestionStore {
	return &SuggestionStore{db: db}
}

// Save upserts a suggestion. A pending suggestion for the same pattern
// absorbs the new evidence; resolved suggestions are left alone so an
// already-rejected pattern is not resurfaced.
func (s *SuggestionStore) Save(sug analyzer.RuleSuggestion) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	examples, err := json.Marshal(sug.Examples)
	if err != nil {
		return fmt.Errorf("failed to encode examples: %w", err)
	}

	_, err = s.db.conn.Exec(`
		INSERT INTO rule_suggestions
			(id, account, pattern_type, pattern_value, suggested_label,
			 email_count, confidence, examples, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account, pattern_type, pattern_value) DO UPDATE SET
			email_count = excluded.email_count,
			confidence = excluded.confidence,
			examples = excluded.examples,
			expires_at = excluded.expires_at
		WHERE rule_suggestions.status = 'pending'`,
		sug.ID, sug.Account, string(sug.PatternType), sug.PatternValue,
		sug.SuggestedLabel, sug.EmailCount, sug.Confidence, string(examples),
		sug.Status, sug.CreatedAt, sug.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	return nil
}

// Get returns one suggestion by id, expiring it first if its TTL has
// passed.
func (s *SuggestionStore) Get(id string) (*analyzer.RuleSuggestion, error) {
	if err := s.expireOverdue(); err != nil {
		return nil, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	row := s.db.conn.QueryRow(`
		SELECT id, account, pattern_type, pattern_value, suggested_label,
		       email_count, confidence, examples, status, created_at, expires_at
		FROM rule_suggestions WHERE id = ?`, id)
	sug, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, derr.NewNotFoundError("suggestion", id)
	}
	return sug, err
}

// ListPending returns unexpired pending suggestions for an account,
// newest evidence first.
func (s *SuggestionStore) ListPending(account string) ([]analyzer.RuleSuggestion, error) {
	if err := s.expireOverdue(); err != nil {
		return nil, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rows, err := s.db.conn.Query(`
		SELECT id, account, pattern_type, pattern_value, suggested_label,
		       email_count, confidence, examples, status, created_at, expires_at
		FROM rule_suggestions
		WHERE account = ? AND status = 'pending'
		ORDER BY email_count DESC, created_at DESC`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer rows.Close()

	var out []analyzer.RuleSuggestion
	for rows.Next() {
		sug, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sug)
	}
	return out, rows.Err()
}

// SetStatus moves a suggestion through the allowed transition map.
func (s *SuggestionStore) SetStatus(id, status string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var current string
	row := s.db.conn.QueryRow(`SELECT status FROM rule_suggestions WHERE id = ?`, id)
	if err := row.Scan(&current); err == sql.ErrNoRows {
		return derr.NewNotFoundError("suggestion", id)
	} else if err != nil {
		return fmt.Errorf("failed to read suggestion: %w", err)
	}

	if !transitionAllowed(suggestionTransitions, current, status) {
		return fmt.Errorf("suggestion %s cannot move from %s to %s: %w", id, current, status, ErrInvalidTransition)
	}

	_, err := s.db.conn.Exec(`UPDATE rule_suggestions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}
	return nil
}

// expireOverdue moves pending suggestions past their TTL to expired.
func (s *SuggestionStore) expireOverdue() error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	_, err := s.db.conn.Exec(
		`UPDATE rule_suggestions SET status = 'expired' WHERE status = 'pending' AND expires_at < ?`,
		s.db.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to expire suggestions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSuggestion(row rowScanner) (*analyzer.RuleSuggestion, error) {
	var sug analyzer.RuleSuggestion
	var patternType, examples string
	err := row.Scan(&sug.ID, &sug.Account, &patternType, &sug.PatternValue,
		&sug.SuggestedLabel, &sug.EmailCount, &sug.Confidence, &examples,
		&sug.Status, &sug.CreatedAt, &sug.ExpiresAt)
	if err != nil {
		return nil, err
	}
	sug.PatternType = analyzer.PatternType(patternType)
	if err := json.Unmarshal([]byte(examples), &sug.Examples); err != nil {
		return nil, fmt.Errorf("failed to decode examples: %w", err)
	}
	return &sug, nil
}

func transitionAllowed(transitions map[string][]string, from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dataassist/internal/derr"
	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// ShouldFallback decides whether a primary-store error warrants the
// file fallback. Domain errors (not found, validation) pass through
// untouched; only infrastructure failures divert.
func ShouldFallback(err error) bool {
	if err == nil {
		return false
	}
	if derr.IsNotFound(err) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database") ||
		strings.Contains(msg, "disk") ||
		strings.Contains(msg, "locked") ||
		strings.Contains(msg, "no such table") ||
		errors.Is(err, os.ErrPermission)
}

// FallbackLog decorates a ConversationLog with a JSON-file secondary.
// When the primary fails with an infrastructure error, turns are kept
// in per-scope files so a broken database never loses conversation
// history.
type FallbackLog struct {
	primary types.ConversationLog
	dir     string
	mu      sync.Mutex

	// shouldFallback is swappable for tests.
	shouldFallback func(error) bool
}

// NewFallbackLog builds the decorator; dir holds the per-scope JSON
// files.
func NewFallbackLog(primary types.ConversationLog, dir string) *FallbackLog {
	return &FallbackLog{primary: primary, dir: dir, shouldFallback: ShouldFallback}
}

var _ types.ConversationLog = (*FallbackLog)(nil)

// Append tries the primary first and diverts qualifying failures to the
// file store.
func (f *FallbackLog) Append(scopeKey string, turn types.LoggedTurn) error {
	err := f.primary.Append(scopeKey, turn)
	if err == nil || !f.shouldFallback(err) {
		return err
	}

	logging.Get(logging.CategoryStore).Warn("primary log failed, using file fallback: %v", err)
	return f.appendFile(scopeKey, turn)
}

// List merges primary history with any fallback turns recorded while
// the primary was down. If the primary itself fails, the fallback file
// alone is returned.
func (f *FallbackLog) List(scopeKey string, limit int) ([]types.LoggedTurn, error) {
	primary, err := f.primary.List(scopeKey, limit)
	if err != nil {
		if !f.shouldFallback(err) {
			return nil, err
		}
		logging.Get(logging.CategoryStore).Warn("primary log read failed, using file fallback: %v", err)
		primary = nil
	}

	overflow, ferr := f.readFile(scopeKey)
	if ferr != nil {
		return primary, err
	}

	merged := append(primary, overflow...)
	if limit > 0 && len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged, nil
}

func (f *FallbackLog) appendFile(scopeKey string, turn types.LoggedTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create fallback dir: %w", err)
	}

	turns, _ := f.readFileLocked(scopeKey)
	turns = append(turns, turn)

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fallback turns: %w", err)
	}
	return os.WriteFile(f.path(scopeKey), data, 0o644)
}

func (f *FallbackLog) readFile(scopeKey string) ([]types.LoggedTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readFileLocked(scopeKey)
}

func (f *FallbackLog) readFileLocked(scopeKey string) ([]types.LoggedTurn, error) {
	data, err := os.ReadFile(f.path(scopeKey))
	if err != nil {
		return nil, err
	}
	var turns []types.LoggedTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// path sanitizes the scope key into a safe file name.
func (f *FallbackLog) path(scopeKey string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, scopeKey)
	return filepath.Join(f.dir, safe+".json")
}

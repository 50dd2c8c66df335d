package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"dataassist/internal/analyzer"
	"dataassist/internal/derr"
	"dataassist/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConversationStore(t *testing.T) {
	db := openTestDB(t)
	s := NewConversationStore(db)

	t.Run("append and list preserve order", func(t *testing.T) {
		base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
		for i, content := range []string{"first", "second", "third"} {
			role := types.RoleUser
			if i%2 == 1 {
				role = types.RoleAssistant
			}
			require.NoError(t, s.Append("task-1", types.LoggedTurn{
				Role: role, Content: content, CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}

		turns, err := s.List("task-1", 0)
		require.NoError(t, err)
		require.Len(t, turns, 3)
		assert.Equal(t, "first", turns[0].Content)
		assert.Equal(t, "third", turns[2].Content)
	})

	t.Run("limit keeps the most recent turns", func(t *testing.T) {
		turns, err := s.List("task-1", 2)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, "second", turns[0].Content)
		assert.Equal(t, "third", turns[1].Content)
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		turns, err := s.List("task-other", 0)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}

func pendingSuggestion(id, pattern string, count int, ttl time.Duration) analyzer.RuleSuggestion {
	now := time.Now()
	return analyzer.RuleSuggestion{
		ID: id, Account: "personal",
		PatternType: analyzer.PatternDomain, PatternValue: pattern,
		SuggestedLabel: "Promotional", EmailCount: count, Confidence: 0.7,
		Examples: []string{"subject one"}, Status: analyzer.SuggestionPending,
		CreatedAt: now, ExpiresAt: now.Add(ttl),
	}
}

func TestSuggestionStore(t *testing.T) {
	db := openTestDB(t)
	s := NewSuggestionStore(db)

	t.Run("save and get round trip", func(t *testing.T) {
		require.NoError(t, s.Save(pendingSuggestion("s1", "promo.a.com", 2, time.Hour)))
		got, err := s.Get("s1")
		require.NoError(t, err)
		assert.Equal(t, "promo.a.com", got.PatternValue)
		assert.Equal(t, []string{"subject one"}, got.Examples)
	})

	t.Run("missing id is NotFound", func(t *testing.T) {
		_, err := s.Get("nope")
		assert.True(t, derr.IsNotFound(err))
	})

	t.Run("pending to approved", func(t *testing.T) {
		require.NoError(t, s.SetStatus("s1", analyzer.SuggestionApproved))
		got, err := s.Get("s1")
		require.NoError(t, err)
		assert.Equal(t, analyzer.SuggestionApproved, got.Status)
	})

	t.Run("approved is terminal", func(t *testing.T) {
		err := s.SetStatus("s1", analyzer.SuggestionRejected)
		assert.Error(t, err)
	})

	t.Run("pending past its TTL expires on read", func(t *testing.T) {
		require.NoError(t, s.Save(pendingSuggestion("s2", "promo.b.com", 2, -time.Minute)))
		got, err := s.Get("s2")
		require.NoError(t, err)
		assert.Equal(t, analyzer.SuggestionExpired, got.Status)

		pending, err := s.ListPending("personal")
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("re-analysis refreshes pending evidence", func(t *testing.T) {
		require.NoError(t, s.Save(pendingSuggestion("s3", "promo.c.com", 2, time.Hour)))
		refreshed := pendingSuggestion("s3-new", "promo.c.com", 6, time.Hour)
		require.NoError(t, s.Save(refreshed))

		pending, err := s.ListPending("personal")
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "s3", pending[0].ID)
		assert.Equal(t, 6, pending[0].EmailCount)
	})
}

func activeItem(id string, ttl time.Duration) analyzer.AttentionItem {
	now := time.Now()
	return analyzer.AttentionItem{
		ID: id, Account: "personal", EmailID: "m-" + id,
		From: "boss@work.com", Subject: "question",
		Reason: analyzer.ReasonQuestion, Status: analyzer.AttentionActive,
		CreatedAt: now, ExpiresAt: now.Add(ttl),
	}
}

func TestAttentionStore(t *testing.T) {
	db := openTestDB(t)
	s := NewAttentionStore(db)

	t.Run("save, list, dismiss", func(t *testing.T) {
		require.NoError(t, s.Save(activeItem("a1", time.Hour)))

		active, err := s.ListActive("personal")
		require.NoError(t, err)
		require.Len(t, active, 1)

		require.NoError(t, s.SetStatus("a1", analyzer.AttentionDismissed))
		active, err = s.ListActive("personal")
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("dismissed is terminal", func(t *testing.T) {
		assert.Error(t, s.SetStatus("a1", analyzer.AttentionActive))
	})

	t.Run("snoozed wakes back to active", func(t *testing.T) {
		require.NoError(t, s.Save(activeItem("a2", time.Hour)))
		require.NoError(t, s.SetStatus("a2", analyzer.AttentionSnoozed))
		require.NoError(t, s.SetStatus("a2", analyzer.AttentionActive))

		got, err := s.Get("a2")
		require.NoError(t, err)
		assert.Equal(t, analyzer.AttentionActive, got.Status)
	})

	t.Run("expired items are dismissed on read", func(t *testing.T) {
		require.NoError(t, s.Save(activeItem("a3", -time.Minute)))
		got, err := s.Get("a3")
		require.NoError(t, err)
		assert.Equal(t, analyzer.AttentionDismissed, got.Status)
	})

	t.Run("missing id is NotFound", func(t *testing.T) {
		assert.True(t, derr.IsNotFound(s.SetStatus("ghost", analyzer.AttentionDismissed)))
	})
}

// flakyLog fails until healed.
type flakyLog struct {
	healthy bool
	turns   map[string][]types.LoggedTurn
}

func newFlakyLog() *flakyLog {
	return &flakyLog{turns: map[string][]types.LoggedTurn{}}
}

func (f *flakyLog) Append(scope string, turn types.LoggedTurn) error {
	if !f.healthy {
		return errors.New("database is locked")
	}
	f.turns[scope] = append(f.turns[scope], turn)
	return nil
}

func (f *flakyLog) List(scope string, limit int) ([]types.LoggedTurn, error) {
	if !f.healthy {
		return nil, errors.New("database is locked")
	}
	return f.turns[scope], nil
}

func TestShouldFallback(t *testing.T) {
	assert.False(t, ShouldFallback(nil))
	assert.False(t, ShouldFallback(derr.NewNotFoundError("turn", "x")))
	assert.True(t, ShouldFallback(errors.New("database is locked")))
	assert.True(t, ShouldFallback(errors.New("disk I/O error")))
	assert.False(t, ShouldFallback(errors.New("invalid action: status: bad")))
}

func TestFallbackLog(t *testing.T) {
	t.Run("healthy primary gets the writes", func(t *testing.T) {
		primary := newFlakyLog()
		primary.healthy = true
		fl := NewFallbackLog(primary, t.TempDir())

		require.NoError(t, fl.Append("s", types.LoggedTurn{Role: types.RoleUser, Content: "hi"}))
		assert.Len(t, primary.turns["s"], 1)
	})

	t.Run("broken primary diverts to files and recovers on list", func(t *testing.T) {
		primary := newFlakyLog()
		fl := NewFallbackLog(primary, t.TempDir())

		require.NoError(t, fl.Append("s", types.LoggedTurn{Role: types.RoleUser, Content: "offline turn"}))
		assert.Empty(t, primary.turns["s"])

		primary.healthy = true
		require.NoError(t, primary.Append("s", types.LoggedTurn{Role: types.RoleAssistant, Content: "db turn"}))

		turns, err := fl.List("s", 0)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, "db turn", turns[0].Content)
		assert.Equal(t, "offline turn", turns[1].Content)
	})

	t.Run("non-infrastructure errors pass through", func(t *testing.T) {
		primary := newFlakyLog()
		fl := NewFallbackLog(primary, t.TempDir())
		fl.shouldFallback = func(error) bool { return false }

		err := fl.Append("s", types.LoggedTurn{Role: types.RoleUser, Content: "x"})
		assert.Error(t, err)
	})
}

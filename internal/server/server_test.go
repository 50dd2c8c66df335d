package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dataassist/internal/analyzer"
	"dataassist/internal/assembly"
	"dataassist/internal/chat"
	"dataassist/internal/derr"
	"dataassist/internal/executor"
	"dataassist/internal/intent"
	"dataassist/internal/llm"
	"dataassist/internal/privacy"
	"dataassist/internal/store"
	"dataassist/internal/types"
)

const testToken = "local-test-token"

// ====== Fakes ======

type cannedBackend struct {
	reply string
	err   error
}

func (b *cannedBackend) Name() string { return "canned" }

func (b *cannedBackend) SupportsTools() bool { return true }

func (b *cannedBackend) SupportsVision() bool { return true }

func (b *cannedBackend) Call(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &llm.Response{TextBlocks: []string{b.reply}, StopReason: "end_turn"}, nil
}

type memLog struct {
	turns map[string][]types.LoggedTurn
}

func (m *memLog) Append(scopeKey string, turn types.LoggedTurn) error {
	if m.turns == nil {
		m.turns = map[string][]types.LoggedTurn{}
	}
	m.turns[scopeKey] = append(m.turns[scopeKey], turn)
	return nil
}

func (m *memLog) List(scopeKey string, limit int) ([]types.LoggedTurn, error) {
	return m.turns[scopeKey], nil
}

type fakeTaskRepo struct {
	tasks     map[string]*types.Task
	updateErr error
}

func (r *fakeTaskRepo) Fetch(ctx context.Context, filters map[string]string) ([]types.Task, error) {
	var out []types.Task
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, id string, diff map[string]interface{}) (*types.Task, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	task, ok := r.tasks[id]
	if !ok {
		return nil, derr.NewNotFoundError("task", id)
	}
	if status, ok := diff["status"].(string); ok {
		task.Status = status
	}
	return task, nil
}

func (r *fakeTaskRepo) Create(ctx context.Context, fields map[string]interface{}) (*types.Task, error) {
	return nil, fmt.Errorf("not implemented")
}

// ====== Harness ======

func newTestServer(t *testing.T, backend llm.Backend, tasks types.TaskRepository) (*Server, *store.SuggestionStore, *store.AttentionStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	suggestions := store.NewSuggestionStore(db)
	attention := store.NewAttentionStore(db)

	chatSvc := chat.NewService(
		intent.NewClassifier(nil),
		assembly.NewAssembler(2, 6),
		executor.New(backend, nil),
		privacy.NewChecker(nil, []string{"Private"}),
		&memLog{},
		nil,
		0,
	)

	analyzerSvc := analyzer.NewService(
		analyzer.NewInboxAnalyzer("work", 2, 7*24*time.Hour, nil),
		analyzer.NewAttentionAnalyzer("work", "me@example.com", 7*24*time.Hour),
		analyzer.NewCalendarAnalyzer(),
	)

	srv := New(chatSvc, tasks, analyzerSvc, suggestions, attention, zap.NewNop())
	return srv, suggestions, attention
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ====== Tests ======

func TestAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, &cannedBackend{reply: "hi"}, nil)
	router := srv.Router(testToken)

	t.Run("healthz is open", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/healthz", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics is open", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/metrics", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/attention", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/attention", nil, "wrong")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unconfigured token disables api", func(t *testing.T) {
		open := srv.Router("")
		w := doRequest(t, open, "GET", "/attention", nil, "anything")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestChatEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &cannedBackend{reply: "You have 3 tasks due this week."}, nil)
	router := srv.Router(testToken)

	t.Run("happy path", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/chat", map[string]interface{}{
			"scope_key": "task:42",
			"scope":     "task",
			"message":   "what should I focus on?",
		}, testToken)
		require.Equal(t, http.StatusOK, w.Code)

		var resp chat.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "You have 3 tasks due this week.", resp.Reply)
		assert.Equal(t, intent.Conversational, resp.Intent)
	})

	t.Run("empty message is 400", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/chat", map[string]interface{}{"scope_key": "x"}, testToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("backend failure is 503", func(t *testing.T) {
		down, _, _ := newTestServer(t, &cannedBackend{err: derr.NewBackendError("canned", fmt.Errorf("boom"))}, nil)
		w := doRequest(t, down.Router(testToken), "POST", "/chat", map[string]interface{}{
			"message": "hello",
		}, testToken)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestConfirmActionEndpoint(t *testing.T) {
	repo := &fakeTaskRepo{tasks: map[string]*types.Task{
		"42": {ID: "42", Title: "Ship report", Status: "In Progress"},
	}}
	srv, _, _ := newTestServer(t, &cannedBackend{reply: "ok"}, repo)
	router := srv.Router(testToken)

	t.Run("applies confirmed update", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/actions/confirm", map[string]interface{}{
			"task_id": "42",
			"update":  map[string]interface{}{"kind": "mark_complete"},
		}, testToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Complete", repo.tasks["42"].Status)
	})

	t.Run("invalid update is 400", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/actions/confirm", map[string]interface{}{
			"task_id": "42",
			"update":  map[string]interface{}{"kind": "update_status", "status": "Bogus"},
		}, testToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown task is 404", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/actions/confirm", map[string]interface{}{
			"task_id": "999",
			"update":  map[string]interface{}{"kind": "mark_complete"},
		}, testToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no backend is 503", func(t *testing.T) {
		noRepo, _, _ := newTestServer(t, &cannedBackend{reply: "ok"}, nil)
		w := doRequest(t, noRepo.Router(testToken), "POST", "/actions/confirm", map[string]interface{}{
			"task_id": "42",
			"update":  map[string]interface{}{"kind": "mark_complete"},
		}, testToken)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, suggestions, attention := newTestServer(t, &cannedBackend{reply: "ok"}, nil)
	router := srv.Router(testToken)

	now := time.Now()
	emails := []types.EmailMessage{
		{ID: "1", From: "deals@news.shop.com", Subject: "50% off everything", Date: now},
		{ID: "2", From: "offers@news.shop.com", Subject: "Flash sale ends tonight", Date: now},
		{ID: "3", From: "boss@example.com", To: []string{"me@example.com"},
			Subject: "Budget question", Body: "Can you confirm the Q3 numbers?", Date: now},
	}

	w := doRequest(t, router, "POST", "/analyze/email", map[string]interface{}{
		"emails": emails,
	}, testToken)
	require.Equal(t, http.StatusOK, w.Code)

	var report analyzer.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.NotEmpty(t, report.Suggestions)
	assert.NotEmpty(t, report.Attention)

	pending, err := suggestions.ListPending("work")
	require.NoError(t, err)
	assert.Len(t, pending, len(report.Suggestions))

	active, err := attention.ListActive("work")
	require.NoError(t, err)
	assert.Len(t, active, len(report.Attention))
}

func TestSuggestionStatusEndpoint(t *testing.T) {
	srv, suggestions, _ := newTestServer(t, &cannedBackend{reply: "ok"}, nil)
	router := srv.Router(testToken)

	require.NoError(t, suggestions.Save(analyzer.RuleSuggestion{
		ID: "s1", Account: "work", PatternType: analyzer.PatternDomain,
		PatternValue: "news.shop.com", SuggestedLabel: "Promotional",
		EmailCount: 3, Confidence: 0.8, Status: analyzer.SuggestionPending,
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}))

	t.Run("list pending", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/suggestions?account=work", nil, testToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "news.shop.com")
	})

	t.Run("approve", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/suggestions/s1/status",
			map[string]string{"status": "approved"}, testToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("double resolve is 409", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/suggestions/s1/status",
			map[string]string{"status": "rejected"}, testToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/suggestions/nope/status",
			map[string]string{"status": "approved"}, testToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing status is 400", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/suggestions/s1/status",
			map[string]string{}, testToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAttentionStatusEndpoint(t *testing.T) {
	srv, _, attention := newTestServer(t, &cannedBackend{reply: "ok"}, nil)
	router := srv.Router(testToken)

	require.NoError(t, attention.Save(analyzer.AttentionItem{
		ID: "a1", Account: "work", EmailID: "m1", From: "boss@example.com",
		Subject: "Budget question", Reason: analyzer.ReasonQuestion,
		Status: analyzer.AttentionActive,
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}))

	t.Run("list active", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/attention?account=work", nil, testToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Budget question")
	})

	t.Run("snooze then wake", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/attention/a1/status",
			map[string]string{"status": "snoozed"}, testToken)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, router, "POST", "/attention/a1/status",
			map[string]string{"status": "active"}, testToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("dismiss is terminal", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/attention/a1/status",
			map[string]string{"status": "dismissed"}, testToken)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, router, "POST", "/attention/a1/status",
			map[string]string{"status": "active"}, testToken)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

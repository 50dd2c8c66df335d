package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataassist/internal/action"
	"dataassist/internal/assembly"
	"dataassist/internal/intent"
	"dataassist/internal/llm"
	"dataassist/internal/types"
)

// scriptedBackend returns canned responses and records calls.
type scriptedBackend struct {
	name  string
	resp  *llm.Response
	err   error
	calls int
}

func (s *scriptedBackend) Name() string         { return s.name }
func (s *scriptedBackend) SupportsTools() bool  { return s.name == "anthropic" }
func (s *scriptedBackend) SupportsVision() bool { return s.name == "anthropic" }
func (s *scriptedBackend) Call(context.Context, llm.Request) (*llm.Response, error) {
	s.calls++
	return s.resp, s.err
}

func textBundle(msg string) *assembly.Bundle {
	return &assembly.Bundle{
		SystemPrompt: "system",
		Messages:     []types.Message{types.TextMessage(types.RoleUser, msg)},
	}
}

func TestExecuteRouting(t *testing.T) {
	t.Run("secondary preferred for plain text", func(t *testing.T) {
		primary := &scriptedBackend{name: "anthropic", resp: &llm.Response{TextBlocks: []string{"from primary"}}}
		secondary := &scriptedBackend{name: "gemini", resp: &llm.Response{TextBlocks: []string{"from secondary"}}}
		e := New(primary, secondary)

		res, err := e.Execute(context.Background(), intent.ProfileFor(intent.Research), textBundle("hi"), false)
		require.NoError(t, err)
		assert.Equal(t, "gemini", res.Backend)
		assert.Equal(t, 0, primary.calls)
	})

	t.Run("tools force primary", func(t *testing.T) {
		primary := &scriptedBackend{name: "anthropic", resp: &llm.Response{TextBlocks: []string{"ok"}}}
		secondary := &scriptedBackend{name: "gemini", resp: &llm.Response{TextBlocks: []string{"nope"}}}
		e := New(primary, secondary)

		bundle := textBundle("hi")
		bundle.Tools = action.Catalog([]string{"update_task"})
		profile := intent.ProfileFor(intent.Research)

		res, err := e.Execute(context.Background(), profile, bundle, false)
		require.NoError(t, err)
		assert.Equal(t, "anthropic", res.Backend)
		assert.Equal(t, 0, secondary.calls)
	})

	t.Run("secondary failure retries once on primary", func(t *testing.T) {
		primary := &scriptedBackend{name: "anthropic", resp: &llm.Response{TextBlocks: []string{"rescued"}}}
		secondary := &scriptedBackend{name: "gemini", err: errors.New("quota")}
		e := New(primary, secondary)

		res, err := e.Execute(context.Background(), intent.ProfileFor(intent.Planning), textBundle("hi"), false)
		require.NoError(t, err)
		assert.Equal(t, "rescued", res.Reply)
		assert.Equal(t, "anthropic", res.Backend)
		assert.Equal(t, 1, secondary.calls)
		assert.Equal(t, 1, primary.calls)
	})

	t.Run("primary failure is the turn error", func(t *testing.T) {
		primary := &scriptedBackend{name: "anthropic", err: errors.New("down")}
		e := New(primary, nil)

		_, err := e.Execute(context.Background(), intent.ProfileFor(intent.Conversational), textBundle("hi"), false)
		assert.Error(t, err)
	})

	t.Run("nil secondary routes everything primary", func(t *testing.T) {
		primary := &scriptedBackend{name: "anthropic", resp: &llm.Response{TextBlocks: []string{"ok"}}}
		e := New(primary, nil)

		res, err := e.Execute(context.Background(), intent.ProfileFor(intent.Research), textBundle("hi"), false)
		require.NoError(t, err)
		assert.Equal(t, "anthropic", res.Backend)
	})
}

func TestExecuteVisualWithoutImages(t *testing.T) {
	primary := &scriptedBackend{name: "anthropic", resp: &llm.Response{TextBlocks: []string{"should not run"}}}
	e := New(primary, nil)

	res, err := e.Execute(context.Background(), intent.ProfileFor(intent.Visual), textBundle("what's in the photo?"), false)
	require.NoError(t, err)
	assert.Equal(t, selectImagesReply, res.Reply)
	assert.Equal(t, 0, primary.calls)
}

func TestParse(t *testing.T) {
	e := New(&scriptedBackend{name: "anthropic"}, nil)

	t.Run("text plus task update", func(t *testing.T) {
		res := e.parse(&llm.Response{
			TextBlocks: []string{"Sure, updating now."},
			ToolCalls: []types.ToolCall{{
				Name:  "update_task",
				Input: map[string]interface{}{"kind": "mark_complete"},
			}},
		})
		assert.Equal(t, "Sure, updating now.", res.Reply)
		require.NotNil(t, res.TaskUpdate)
		assert.Equal(t, action.MarkComplete, res.TaskUpdate.Kind)
	})

	t.Run("tool call with no prose synthesizes a confirmation", func(t *testing.T) {
		res := e.parse(&llm.Response{
			ToolCalls: []types.ToolCall{{
				Name:  "update_task",
				Input: map[string]interface{}{"kind": "update_priority", "priority": "High"},
			}},
		})
		assert.NotEmpty(t, res.Reply)
		assert.Contains(t, res.Reply, "High")
	})

	t.Run("last task update wins", func(t *testing.T) {
		res := e.parse(&llm.Response{
			ToolCalls: []types.ToolCall{
				{Name: "update_task", Input: map[string]interface{}{"kind": "update_priority", "priority": "Low"}},
				{Name: "update_task", Input: map[string]interface{}{"kind": "update_priority", "priority": "Urgent"}},
			},
		})
		require.NotNil(t, res.TaskUpdate)
		assert.Equal(t, "Urgent", res.TaskUpdate.Priority)
	})

	t.Run("portfolio updates collect", func(t *testing.T) {
		res := e.parse(&llm.Response{
			TextBlocks: []string{"Closing both."},
			ToolCalls: []types.ToolCall{
				{Name: "update_portfolio_task", Input: map[string]interface{}{"kind": "mark_complete", "target_task_id": "a", "source": "smartsheet"}},
				{Name: "update_portfolio_task", Input: map[string]interface{}{"kind": "mark_complete", "target_task_id": "b", "source": "smartsheet"}},
			},
		})
		assert.Len(t, res.PortfolioUpdates, 2)
	})

	t.Run("second email action is ignored", func(t *testing.T) {
		res := e.parse(&llm.Response{
			ToolCalls: []types.ToolCall{
				{Name: "create_email_draft", Input: map[string]interface{}{"recipient": "a@b.c", "subject": "s", "body": "b"}},
				{Name: "update_email_draft", Input: map[string]interface{}{"body": "other"}},
			},
		})
		require.NotNil(t, res.NewDraft)
		assert.Nil(t, res.DraftUpdate)
		assert.Len(t, res.ParseErrors, 1)
	})

	t.Run("invalid tool input keeps the prose", func(t *testing.T) {
		res := e.parse(&llm.Response{
			TextBlocks: []string{"Let me change that."},
			ToolCalls: []types.ToolCall{{
				Name:  "update_task",
				Input: map[string]interface{}{"kind": "update_status", "status": "Probably Done"},
			}},
		})
		assert.Nil(t, res.TaskUpdate)
		assert.Equal(t, "Let me change that.", res.Reply)
		assert.Len(t, res.ParseErrors, 1)
	})

	t.Run("invalid tool input with no prose still answers", func(t *testing.T) {
		res := e.parse(&llm.Response{
			ToolCalls: []types.ToolCall{{
				Name:  "update_task",
				Input: map[string]interface{}{"kind": "update_status", "status": "NotARealStatus"},
			}},
		})
		assert.Nil(t, res.TaskUpdate)
		assert.Len(t, res.ParseErrors, 1)
		assert.Equal(t, parseFailureReply, res.Reply)
	})

	t.Run("unknown tool recorded", func(t *testing.T) {
		res := e.parse(&llm.Response{
			TextBlocks: []string{"hm"},
			ToolCalls:  []types.ToolCall{{Name: "launch_rocket", Input: map[string]interface{}{}}},
		})
		assert.Len(t, res.ParseErrors, 1)
		assert.False(t, res.HasActions())
	})
}

package assembly

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataassist/internal/intent"
	"dataassist/internal/types"
)

func makeHistory(n int) []types.LoggedTurn {
	turns := make([]types.LoggedTurn, 0, n)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		turns = append(turns, types.LoggedTurn{
			Role:      role,
			Content:   fmt.Sprintf("turn %d content.", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return turns
}

func TestAssembleActionHistoryIsExactlyTwoTurns(t *testing.T) {
	a := NewAssembler(2, 6)
	task := &types.Task{ID: "t1", Title: "Fix gutter", Status: "In Progress"}

	bundle, err := a.Assemble(Input{
		Intent:      intent.Action,
		Profile:     intent.ProfileFor(intent.Action),
		Scope:       ScopeTask,
		Task:        task,
		UserMessage: "mark it done",
		History:     makeHistory(10),
	})
	require.NoError(t, err)

	// priming pair (2) + exactly 2 history turns + current message
	require.Len(t, bundle.Messages, 5)
	assert.Equal(t, "turn 8 content.", bundle.Messages[2].PlainText())
	assert.Equal(t, "turn 9 content.", bundle.Messages[3].PlainText())
	assert.Equal(t, "mark it done", bundle.Messages[4].PlainText())
}

func TestAssembleConversationalHistorySummarizesOverflow(t *testing.T) {
	a := NewAssembler(2, 6)

	bundle, err := a.Assemble(Input{
		Intent:      intent.Conversational,
		Profile:     intent.ProfileFor(intent.Conversational),
		Scope:       ScopeGeneral,
		UserMessage: "what were we talking about?",
		History:     makeHistory(10),
	})
	require.NoError(t, err)

	// summary pair (2) + 6 recent turns + current message, no priming
	require.Len(t, bundle.Messages, 9)
	assert.True(t, strings.HasPrefix(bundle.Messages[0].PlainText(), "Previous context: "))
	assert.Contains(t, bundle.Messages[0].PlainText(), "turn 0 content.")
	assert.Equal(t, "turn 4 content.", bundle.Messages[2].PlainText())
}

func TestAssembleShortHistoryHasNoSummary(t *testing.T) {
	a := NewAssembler(2, 6)

	bundle, err := a.Assemble(Input{
		Intent:      intent.Conversational,
		Profile:     intent.ProfileFor(intent.Conversational),
		UserMessage: "hi",
		History:     makeHistory(4),
	})
	require.NoError(t, err)

	require.Len(t, bundle.Messages, 5)
	assert.NotContains(t, bundle.Messages[0].PlainText(), "Previous context:")
}

func TestAssemblePriming(t *testing.T) {
	a := NewAssembler(2, 6)
	task := &types.Task{
		ID: "t1", Title: "Renew passport", Status: "Not Started",
		Priority: "High", DueDate: "2026-10-01", Notes: "bring old one",
	}

	t.Run("task priming carries summary and canned ack", func(t *testing.T) {
		bundle, err := a.Assemble(Input{
			Intent:      intent.Conversational,
			Profile:     intent.ProfileFor(intent.Conversational),
			Scope:       ScopeTask,
			Task:        task,
			UserMessage: "what's left here?",
		})
		require.NoError(t, err)
		require.Len(t, bundle.Messages, 3)

		priming := bundle.Messages[0].PlainText()
		assert.Contains(t, priming, "Renew passport")
		assert.Contains(t, priming, "due: 2026-10-01")
		assert.Contains(t, priming, "bring old one")
		assert.Equal(t, types.RoleAssistant, bundle.Messages[1].Role)
		assert.Equal(t, primingAck, bundle.Messages[1].PlainText())
	})

	t.Run("images attach only when the profile asks", func(t *testing.T) {
		img := ImageAttachment{Name: "roof.jpg", MediaType: "image/jpeg", Data: "aGk="}

		visual, err := a.Assemble(Input{
			Intent:      intent.Visual,
			Profile:     intent.Constrain(intent.ProfileFor(intent.Visual), true, true),
			Task:        task,
			Images:      []ImageAttachment{img},
			UserMessage: "what's in the photo?",
		})
		require.NoError(t, err)
		assert.True(t, visual.Messages[0].HasImages())

		plain, err := a.Assemble(Input{
			Intent:      intent.Conversational,
			Profile:     intent.ProfileFor(intent.Conversational),
			Task:        task,
			Images:      []ImageAttachment{img},
			UserMessage: "status?",
		})
		require.NoError(t, err)
		assert.False(t, plain.Messages[0].HasImages())
	})

	t.Run("portfolio priming lists every task", func(t *testing.T) {
		bundle, err := a.Assemble(Input{
			Intent:  intent.Planning,
			Profile: intent.ProfileFor(intent.Planning),
			Scope:   ScopePortfolio,
			Tasks: []types.Task{
				{ID: "a", Title: "One", Status: "Not Started", Source: "smartsheet"},
				{ID: "b", Title: "Two", Status: "Blocked", Source: "firestore"},
			},
			UserMessage: "plan my week",
		})
		require.NoError(t, err)
		priming := bundle.Messages[0].PlainText()
		assert.Contains(t, priming, "One")
		assert.Contains(t, priming, "Two")
		assert.Contains(t, priming, "source: firestore")
	})

	t.Run("no context means no priming pair", func(t *testing.T) {
		bundle, err := a.Assemble(Input{
			Intent:      intent.Conversational,
			Profile:     intent.ProfileFor(intent.Conversational),
			UserMessage: "hello",
		})
		require.NoError(t, err)
		require.Len(t, bundle.Messages, 1)
	})
}

func TestAssembleTools(t *testing.T) {
	a := NewAssembler(2, 6)

	bundle, err := a.Assemble(Input{
		Intent:      intent.Action,
		Profile:     intent.ProfileFor(intent.Action),
		Task:        &types.Task{ID: "t1", Title: "x", Status: "Not Started"},
		UserMessage: "set priority to high",
	})
	require.NoError(t, err)
	require.Len(t, bundle.Tools, 2)
	assert.Equal(t, "update_task", bundle.Tools[0].Name)
}

func TestSystemPromptSelection(t *testing.T) {
	actionPrompt, err := systemPromptFor(intent.Action)
	require.NoError(t, err)
	visualPrompt, err := systemPromptFor(intent.Visual)
	require.NoError(t, err)

	// Shared fragments appear in both, intent fragments only in theirs.
	assert.Contains(t, actionPrompt, "You are DATA")
	assert.Contains(t, visualPrompt, "You are DATA")
	assert.Contains(t, actionPrompt, "one tool call per field change")
	assert.NotContains(t, visualPrompt, "one tool call per field change")
	assert.Contains(t, visualPrompt, "attached images")

	// Identity always leads.
	assert.True(t, strings.HasPrefix(actionPrompt, "You are DATA"))
}

func TestEstimateTokens(t *testing.T) {
	a := NewAssembler(2, 6)

	text, err := a.Assemble(Input{
		Intent:      intent.Conversational,
		Profile:     intent.ProfileFor(intent.Conversational),
		UserMessage: strings.Repeat("word ", 100),
	})
	require.NoError(t, err)

	withImage, err := a.Assemble(Input{
		Intent:  intent.Visual,
		Profile: intent.Constrain(intent.ProfileFor(intent.Visual), true, false),
		Images: []ImageAttachment{
			{Name: "a.png", MediaType: "image/png", Data: "aGk="},
		},
		UserMessage: strings.Repeat("word ", 100),
	})
	require.NoError(t, err)

	assert.Greater(t, text.EstimatedTokens, 0)
	assert.GreaterOrEqual(t, withImage.EstimatedTokens-text.EstimatedTokens, imageTokenSurcharge)
}

package assembly

import (
	"fmt"
	"strings"

	"dataassist/internal/action"
	"dataassist/internal/intent"
	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// primingAck is the canned assistant reply that closes the priming
// exchange, so the real conversation starts on a user turn.
const primingAck = "Understood. I have the task context and I'm ready to help."

// Scope names what the conversation is anchored to.
type Scope string

const (
	ScopeTask      Scope = "task"
	ScopePortfolio Scope = "portfolio"
	ScopeEmail     Scope = "email"
	ScopeGeneral   Scope = "general"
)

// ImageAttachment is one downloaded, shrunk image ready for the primary
// backend.
type ImageAttachment struct {
	Name      string
	MediaType string
	Data      string // base64
}

// Input is everything the assembler needs for one turn.
type Input struct {
	Intent      intent.Name
	Profile     intent.Profile
	Scope       Scope
	Task        *types.Task
	Tasks       []types.Task
	UserMessage string
	History     []types.LoggedTurn
	Images      []ImageAttachment
	PDFTexts    []string
	Workspace   string
}

// Bundle is the assembled request, ready for a backend.
type Bundle struct {
	SystemPrompt    string
	Messages        []types.Message
	Tools           []types.ToolDefinition
	EstimatedTokens int
}

// historyLimits controls how much history each intent carries. Action
// turns get exactly the last two turns so the model acts on the current
// request, not a stale one.
type historyLimits struct {
	actionTurns int
	recentTurns int
}

// Assembler builds prompt bundles.
type Assembler struct {
	limits historyLimits
}

// NewAssembler builds an assembler. Zero or negative limits fall back
// to the defaults (2 action turns, 6 recent turns).
func NewAssembler(actionTurns, recentTurns int) *Assembler {
	if actionTurns <= 0 {
		actionTurns = 2
	}
	if recentTurns <= 0 {
		recentTurns = 6
	}
	return &Assembler{limits: historyLimits{actionTurns: actionTurns, recentTurns: recentTurns}}
}

// Assemble builds the full prompt bundle for one turn.
func (a *Assembler) Assemble(in Input) (*Bundle, error) {
	timer := logging.StartTimer(logging.CategoryContext, "Assemble")
	defer timer.Stop()

	system, err := systemPromptFor(in.Intent)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{SystemPrompt: system}

	if priming := a.primingMessage(in); priming != nil {
		bundle.Messages = append(bundle.Messages, *priming)
		bundle.Messages = append(bundle.Messages, types.TextMessage(types.RoleAssistant, primingAck))
	}

	if in.Profile.IncludeHistory {
		bundle.Messages = append(bundle.Messages, a.historyMessages(in.Intent, in.History)...)
	}

	bundle.Messages = append(bundle.Messages, types.TextMessage(types.RoleUser, in.UserMessage))
	bundle.Tools = action.Catalog(in.Profile.Tools)
	bundle.EstimatedTokens = estimateTokens(bundle)

	logging.ContextDebug("assembled bundle: intent=%s messages=%d tools=%d est_tokens=%d",
		in.Intent, len(bundle.Messages), len(bundle.Tools), bundle.EstimatedTokens)
	return bundle, nil
}

// primingMessage builds the context-carrying first user turn. Returns
// nil when there is nothing to prime with.
func (a *Assembler) primingMessage(in Input) *types.Message {
	var parts []types.ContentPart
	var text strings.Builder

	switch {
	case in.Task != nil:
		text.WriteString("Current task:\n")
		text.WriteString(summarizeTask(*in.Task))
	case len(in.Tasks) > 0:
		text.WriteString(fmt.Sprintf("Task portfolio (%d tasks):\n", len(in.Tasks)))
		for _, t := range in.Tasks {
			text.WriteString(summarizeTask(t))
			text.WriteString("\n")
		}
	}

	for _, pdf := range in.PDFTexts {
		if pdf == "" {
			continue
		}
		text.WriteString("\nAttached document text:\n")
		text.WriteString(pdf)
		text.WriteString("\n")
	}

	if in.Profile.IncludeWorkspace && in.Workspace != "" {
		text.WriteString("\nWorkspace notes:\n")
		text.WriteString(in.Workspace)
		text.WriteString("\n")
	}

	body := strings.TrimSpace(text.String())
	if body == "" && len(in.Images) == 0 {
		return nil
	}
	if body != "" {
		parts = append(parts, types.ContentPart{Type: types.PartText, Text: body})
	}

	if in.Profile.IncludeImages {
		for _, img := range in.Images {
			parts = append(parts, types.ContentPart{
				Type:      types.PartImage,
				MediaType: img.MediaType,
				Data:      img.Data,
			})
		}
	}

	return &types.Message{Role: types.RoleUser, Parts: parts}
}

// historyMessages trims persisted history per intent. Action intents
// carry exactly the last N turns verbatim. Everything else carries the
// last M turns verbatim plus a one-line extractive summary of what was
// dropped.
func (a *Assembler) historyMessages(name intent.Name, history []types.LoggedTurn) []types.Message {
	if len(history) == 0 {
		return nil
	}

	if name == intent.Action {
		return turnsToMessages(lastN(history, a.limits.actionTurns))
	}

	recent := lastN(history, a.limits.recentTurns)
	dropped := history[:len(history)-len(recent)]

	var out []types.Message
	if summary := summarizeTurns(dropped); summary != "" {
		out = append(out, types.TextMessage(types.RoleUser, "Previous context: "+summary))
		out = append(out, types.TextMessage(types.RoleAssistant, "Noted."))
	}
	return append(out, turnsToMessages(recent)...)
}

func lastN(turns []types.LoggedTurn, n int) []types.LoggedTurn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

func turnsToMessages(turns []types.LoggedTurn) []types.Message {
	out := make([]types.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, types.TextMessage(t.Role, t.Content))
	}
	return out
}

// summarizeTurns builds a cheap extractive summary: the first sentence
// of each dropped user turn, joined. No LLM round trip.
func summarizeTurns(turns []types.LoggedTurn) string {
	var lines []string
	for _, t := range turns {
		if t.Role != types.RoleUser {
			continue
		}
		lines = append(lines, firstSentence(t.Content))
	}
	return strings.Join(lines, " ")
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	for _, stop := range []string{". ", "? ", "! ", "\n"} {
		if idx := strings.Index(s, stop); idx >= 0 {
			return s[:idx+1]
		}
	}
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

func summarizeTask(t types.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [%s] %s (status: %s", t.ID, t.Title, t.Status)
	if t.Priority != "" {
		fmt.Fprintf(&b, ", priority: %s", t.Priority)
	}
	if t.DueDate != "" {
		fmt.Fprintf(&b, ", due: %s", t.DueDate)
	}
	if t.AssignedTo != "" {
		fmt.Fprintf(&b, ", assigned: %s", t.AssignedTo)
	}
	if t.Source != "" {
		fmt.Fprintf(&b, ", source: %s", t.Source)
	}
	b.WriteString(")")
	if t.Notes != "" {
		fmt.Fprintf(&b, "\n  notes: %s", t.Notes)
	}
	return b.String()
}

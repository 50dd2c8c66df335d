// Package executor routes an assembled prompt bundle to a backend,
// applies the single fallback retry, and parses the raw response into
// the typed turn result the chat layer works with.
package executor

import (
	"context"

	"dataassist/internal/action"
	"dataassist/internal/assembly"
	"dataassist/internal/intent"
	"dataassist/internal/llm"
	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// selectImagesReply is returned verbatim when a visual turn arrives
// with no images attached. No backend call is made in that case.
const selectImagesReply = "I don't have any images for this conversation yet. Attach or select the images you'd like me to look at and ask again."

// parseFailureReply stands in when the model produced no prose and
// none of its tool calls survived validation.
const parseFailureReply = "I couldn't turn that into a valid change. Could you rephrase what you'd like me to do?"

// Result is the parsed outcome of one executed turn.
type Result struct {
	Reply            string
	TaskUpdate       *action.TaskUpdate
	PortfolioUpdates []action.PortfolioUpdate
	DraftUpdate      *action.EmailDraftUpdate
	NewDraft         *action.PendingEmailDraft
	Backend          string
	ParseErrors      []string
}

// HasActions reports whether the turn proposed any mutation.
func (r *Result) HasActions() bool {
	return r.TaskUpdate != nil || len(r.PortfolioUpdates) > 0 || r.DraftUpdate != nil || r.NewDraft != nil
}

// Executor owns the two backends and the routing policy between them.
type Executor struct {
	primary   llm.Backend
	secondary llm.Backend
}

// New builds an executor. Secondary may be nil; everything then routes
// to the primary.
func New(primary, secondary llm.Backend) *Executor {
	return &Executor{primary: primary, secondary: secondary}
}

// Execute runs one assembled bundle and parses the response. A failed
// secondary call is retried once on the primary; a failed primary call
// is the turn's error. Parse problems are never errors: the user still
// gets whatever prose the model produced, with the problems recorded in
// Result.ParseErrors.
func (e *Executor) Execute(ctx context.Context, profile intent.Profile, bundle *assembly.Bundle, hasImages bool) (*Result, error) {
	if profile.IncludeImages && !hasImages {
		// Guarded upstream by intent.Constrain; kept here so a direct
		// caller cannot reach a vision turn with nothing to see.
		return &Result{Reply: selectImagesReply}, nil
	}
	if !hasImages && imageParts(bundle) {
		hasImages = true
	}

	req := llm.Request{
		System:   bundle.SystemPrompt,
		Messages: bundle.Messages,
		Tools:    bundle.Tools,
	}

	backend := e.pick(profile, len(bundle.Tools) > 0, hasImages)
	resp, err := backend.Call(ctx, req)
	if err != nil && backend != e.primary {
		logging.Executor("secondary backend failed, retrying on primary: %v", err)
		backend = e.primary
		resp, err = backend.Call(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	result := e.parse(resp)
	result.Backend = backend.Name()
	logging.ExecutorDebug("executed turn: backend=%s reply_len=%d actions=%v parse_errors=%d",
		result.Backend, len(result.Reply), result.HasActions(), len(result.ParseErrors))
	return result, nil
}

// pick chooses the backend. The secondary only sees plain text turns it
// can actually serve; anything with tools or images goes primary.
func (e *Executor) pick(profile intent.Profile, hasTools, hasImages bool) llm.Backend {
	if e.secondary != nil &&
		profile.PreferredBackend == intent.TierSecondary &&
		!hasTools && !hasImages {
		return e.secondary
	}
	return e.primary
}

func imageParts(bundle *assembly.Bundle) bool {
	for _, m := range bundle.Messages {
		if m.HasImages() {
			return true
		}
	}
	return false
}

// parse converts the raw backend response into a typed result. For
// task-scope updates the last proposal wins; portfolio updates collect;
// at most one email action is honored.
func (e *Executor) parse(resp *llm.Response) *Result {
	result := &Result{Reply: resp.Text()}

	for _, tc := range resp.ToolCalls {
		switch tc.Name {
		case "update_task":
			u, err := action.FromToolCall(tc)
			if err != nil {
				result.ParseErrors = append(result.ParseErrors, err.Error())
				continue
			}
			result.TaskUpdate = &u
		case "update_portfolio_task":
			p, err := action.PortfolioFromToolCall(tc)
			if err != nil {
				result.ParseErrors = append(result.ParseErrors, err.Error())
				continue
			}
			result.PortfolioUpdates = append(result.PortfolioUpdates, p)
		case "update_email_draft":
			if result.DraftUpdate != nil || result.NewDraft != nil {
				result.ParseErrors = append(result.ParseErrors, "ignored extra email action")
				continue
			}
			u, err := action.EmailDraftUpdateFromToolCall(tc)
			if err != nil {
				result.ParseErrors = append(result.ParseErrors, err.Error())
				continue
			}
			result.DraftUpdate = &u
		case "create_email_draft":
			if result.DraftUpdate != nil || result.NewDraft != nil {
				result.ParseErrors = append(result.ParseErrors, "ignored extra email action")
				continue
			}
			d, err := action.PendingEmailDraftFromToolCall(tc)
			if err != nil {
				result.ParseErrors = append(result.ParseErrors, err.Error())
				continue
			}
			result.NewDraft = &d
		default:
			result.ParseErrors = append(result.ParseErrors, "unknown tool "+tc.Name)
		}
	}

	// A tool call with no prose still needs a user-facing sentence.
	if result.Reply == "" && result.TaskUpdate != nil {
		result.Reply = action.ConfirmationText(*result.TaskUpdate)
	}
	if result.Reply == "" && len(result.PortfolioUpdates) > 0 {
		result.Reply = action.ConfirmationText(result.PortfolioUpdates[0].TaskUpdate)
	}
	if result.Reply == "" && result.NewDraft != nil {
		result.Reply = "I've drafted that email for you to review."
	}
	if result.Reply == "" && result.DraftUpdate != nil {
		result.Reply = "I've revised the draft for you to review."
	}
	// Every tool call failed to parse and the model sent no prose.
	if result.Reply == "" && len(result.ParseErrors) > 0 {
		result.Reply = parseFailureReply
	}

	return result
}

// ReplyMessage wraps the result reply as an assistant message.
func (r *Result) ReplyMessage() types.Message {
	return types.TextMessage(types.RoleAssistant, r.Reply)
}

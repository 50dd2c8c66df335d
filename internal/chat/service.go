// Package chat orchestrates one conversational turn: privacy gate,
// intent classification, context assembly, execution, and history
// persistence.
package chat

import (
	"context"
	"encoding/base64"
	"fmt"

	"dataassist/internal/action"
	"dataassist/internal/assembly"
	"dataassist/internal/attach"
	"dataassist/internal/executor"
	"dataassist/internal/intent"
	"dataassist/internal/logging"
	"dataassist/internal/privacy"
	"dataassist/internal/types"
)

// withheldBodyNote replaces an email body the privacy filter blocked.
const withheldBodyNote = "[email body withheld for privacy]"

// Request is one user turn.
type Request struct {
	ScopeKey    string
	Scope       assembly.Scope
	Message     string
	Task        *types.Task
	Tasks       []types.Task
	Email       *types.EmailMessage
	Workspace   string
	Images      []assembly.ImageAttachment
	AllowUnsafe bool // explicit per-item privacy override
}

// Response is the assistant's side of the turn plus any proposed
// actions awaiting confirmation.
type Response struct {
	Reply            string
	Intent           intent.Name
	Backend          string
	TaskUpdate       *action.TaskUpdate
	PortfolioUpdates []action.PortfolioUpdate
	DraftUpdate      *action.EmailDraftUpdate
	NewDraft         *action.PendingEmailDraft
	BodyWithheld     bool
}

// Service runs chat turns.
type Service struct {
	classifier *intent.Classifier
	assembler  *assembly.Assembler
	executor   *executor.Executor
	checker    *privacy.Checker
	log        types.ConversationLog
	fetcher    types.AttachmentFetcher
	maxImage   int
}

// NewService wires the turn pipeline together. fetcher may be nil when
// attachments are disabled.
func NewService(
	classifier *intent.Classifier,
	assembler *assembly.Assembler,
	exec *executor.Executor,
	checker *privacy.Checker,
	log types.ConversationLog,
	fetcher types.AttachmentFetcher,
	maxImageBytes int,
) *Service {
	return &Service{
		classifier: classifier,
		assembler:  assembler,
		executor:   exec,
		checker:    checker,
		log:        log,
		fetcher:    fetcher,
		maxImage:   maxImageBytes,
	}
}

// HandleTurn runs one full turn. The reply is returned even when parts
// of the pipeline degrade; only a primary backend failure is an error.
func (s *Service) HandleTurn(ctx context.Context, req Request) (*Response, error) {
	timer := logging.StartTimer(logging.CategoryChat, "HandleTurn")
	defer timer.Stop()

	// Privacy gate runs before the message leaves this process.
	bodyWithheld := false
	if req.Email != nil {
		res := s.checker.Check(privacy.CheckRequest{
			FromAddress:     req.Email.From,
			Labels:          req.Email.Labels,
			Body:            req.Email.Body,
			Subject:         req.Email.Subject,
			Snippet:         req.Email.Snippet,
			OverrideGranted: req.AllowUnsafe,
		})
		if !res.CanSeeBody {
			bodyWithheld = true
			sanitized := *req.Email
			sanitized.Body = withheldBodyNote
			sanitized.HTMLBody = ""
			sanitized.Snippet = ""
			req.Email = &sanitized
			logging.Chat("email body withheld: reason=%s", res.BlockedReason)
		}
	}

	classified := s.classifier.Classify(ctx, req.Message)
	profile := intent.Constrain(intent.ProfileFor(classified.Intent), len(req.Images) > 0 || s.hasImageAttachments(req), req.Task != nil || len(req.Tasks) > 0)

	images := req.Images
	var pdfTexts []string
	if profile.IncludeImages || classified.Intent == intent.Visual {
		fetched, pdfs := s.fetchAttachments(ctx, req.Task)
		images = append(images, fetched...)
		pdfTexts = pdfs
		profile = intent.Constrain(intent.ProfileFor(classified.Intent), len(images) > 0, req.Task != nil || len(req.Tasks) > 0)
	}

	history, err := s.log.List(req.ScopeKey, 50)
	if err != nil {
		logging.Get(logging.CategoryChat).Warn("history unavailable for %s: %v", req.ScopeKey, err)
		history = nil
	}

	workspace := req.Workspace
	if req.Email != nil {
		workspace = emailContext(req.Email, workspace)
	}

	bundle, err := s.assembler.Assemble(assembly.Input{
		Intent:      classified.Intent,
		Profile:     profile,
		Scope:       req.Scope,
		Task:        req.Task,
		Tasks:       req.Tasks,
		UserMessage: req.Message,
		History:     history,
		Images:      images,
		PDFTexts:    pdfTexts,
		Workspace:   workspace,
	})
	if err != nil {
		return nil, err
	}

	var result *executor.Result
	if classified.Intent == intent.Visual && len(images) == 0 {
		result, err = s.executor.Execute(ctx, intent.ProfileFor(intent.Visual), bundle, false)
	} else {
		result, err = s.executor.Execute(ctx, profile, bundle, len(images) > 0)
	}
	if err != nil {
		return nil, err
	}

	s.appendTurns(req.ScopeKey, req.Message, result.Reply)

	return &Response{
		Reply:            result.Reply,
		Intent:           classified.Intent,
		Backend:          result.Backend,
		TaskUpdate:       result.TaskUpdate,
		PortfolioUpdates: result.PortfolioUpdates,
		DraftUpdate:      result.DraftUpdate,
		NewDraft:         result.NewDraft,
		BodyWithheld:     bodyWithheld,
	}, nil
}

func (s *Service) hasImageAttachments(req Request) bool {
	if req.Task == nil {
		return false
	}
	return len(req.Task.AttachmentURLs) > 0
}

// fetchAttachments downloads the task's attachments, shrinking images
// and extracting PDF text. Failed downloads are omitted.
func (s *Service) fetchAttachments(ctx context.Context, task *types.Task) ([]assembly.ImageAttachment, []string) {
	if task == nil || s.fetcher == nil {
		return nil, nil
	}

	var images []assembly.ImageAttachment
	var pdfs []string
	for _, url := range task.AttachmentURLs {
		data := s.fetcher.Download(ctx, url)
		if data == nil {
			continue
		}
		if text := attach.ExtractPDFText(data); text != "" {
			pdfs = append(pdfs, text)
			continue
		}
		shrunk, mediaType, err := attach.ShrinkImage(data, s.maxImage)
		if err != nil {
			logging.AttachDebug("skipping attachment %s: %v", url, err)
			continue
		}
		images = append(images, assembly.ImageAttachment{
			Name:      url,
			MediaType: mediaType,
			Data:      encodeBase64(shrunk),
		})
	}
	return images, pdfs
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func (s *Service) appendTurns(scopeKey, userMsg, reply string) {
	if err := s.log.Append(scopeKey, types.LoggedTurn{Role: types.RoleUser, Content: userMsg}); err != nil {
		logging.Get(logging.CategoryChat).Warn("failed to persist user turn: %v", err)
	}
	if err := s.log.Append(scopeKey, types.LoggedTurn{Role: types.RoleAssistant, Content: reply}); err != nil {
		logging.Get(logging.CategoryChat).Warn("failed to persist assistant turn: %v", err)
	}
}

// emailContext renders the scoped email for the priming turn. Withheld
// bodies arrive already sanitized.
func emailContext(email *types.EmailMessage, workspace string) string {
	ctx := fmt.Sprintf("Email in scope:\nFrom: %s\nSubject: %s\nDate: %s\n\n%s",
		email.From, email.Subject, email.Date.Format("2006-01-02 15:04"), email.Body)
	if workspace != "" {
		ctx += "\n\n" + workspace
	}
	return ctx
}

package analyzer

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// Attention detectors in fixed priority order: question beats request
// beats urgency beats deadline. One email yields at most one item.

var (
	questionRe = regexp.MustCompile(`(?m)\?\s*$|\?\s`)
	requestRe  = regexp.MustCompile(`(?i)\b(please|can you|could you|would you|need you to|let me know|get back to me|send me|confirm)\b`)
	urgentRe   = regexp.MustCompile(`(?i)\b(urgent|asap|as soon as possible|immediately|time.sensitive|right away|eod|end of day)\b`)
	deadlineRe = regexp.MustCompile(`(?i)\b(by (monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|next week)|due (on|by)|deadline|no later than)\b`)
)

// AttentionAnalyzer finds emails that need a reply or action from the
// user. Only messages addressed to the user directly (To or Cc) are
// considered; list traffic never raises attention items.
type AttentionAnalyzer struct {
	account     string
	userAddress string
	ttl         time.Duration
	now         func() time.Time
}

// NewAttentionAnalyzer builds an analyzer for one account.
func NewAttentionAnalyzer(account, userAddress string, ttl time.Duration) *AttentionAnalyzer {
	return &AttentionAnalyzer{
		account:     account,
		userAddress: strings.ToLower(userAddress),
		ttl:         ttl,
		now:         time.Now,
	}
}

// Analyze scans a batch of emails. In-batch duplicates by sender and
// reason keep the earliest email.
func (a *AttentionAnalyzer) Analyze(emails []types.EmailMessage) []AttentionItem {
	timer := logging.StartTimer(logging.CategoryAnalyzer, "AttentionAnalyze")
	defer timer.Stop()

	now := a.now()
	seen := map[string]bool{}
	var out []AttentionItem

	for _, email := range emails {
		if !a.addressedToUser(email) {
			continue
		}
		reason, evidence := detectAttention(email)
		if reason == "" {
			continue
		}

		key := strings.ToLower(email.From) + "|" + string(reason)
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, AttentionItem{
			ID:        uuid.NewString(),
			Account:   a.account,
			EmailID:   email.ID,
			From:      email.From,
			Subject:   email.Subject,
			Reason:    reason,
			Evidence:  evidence,
			Status:    AttentionActive,
			CreatedAt: now,
			ExpiresAt: now.Add(a.ttl),
		})
	}

	logging.Analyzer("attention analysis: %d emails -> %d items", len(emails), len(out))
	return out
}

func (a *AttentionAnalyzer) addressedToUser(email types.EmailMessage) bool {
	for _, addr := range email.To {
		if strings.Contains(strings.ToLower(addr), a.userAddress) {
			return true
		}
	}
	for _, addr := range email.Cc {
		if strings.Contains(strings.ToLower(addr), a.userAddress) {
			return true
		}
	}
	return false
}

// detectAttention applies the detectors in priority order and returns
// the matched evidence snippet.
func detectAttention(email types.EmailMessage) (AttentionReason, string) {
	text := email.Body
	if text == "" {
		text = email.Snippet
	}
	combined := email.Subject + "\n" + text

	if m := questionRe.FindString(combined); m != "" {
		return ReasonQuestion, snippetAround(combined, strings.Index(combined, "?"))
	}
	if m := requestRe.FindString(combined); m != "" {
		return ReasonRequest, m
	}
	if m := urgentRe.FindString(combined); m != "" {
		return ReasonUrgent, m
	}
	if m := deadlineRe.FindString(combined); m != "" {
		return ReasonDeadline, m
	}
	return "", ""
}

// snippetAround returns a short window of text around the given index.
func snippetAround(text string, idx int) string {
	if idx < 0 {
		return ""
	}
	start := idx - 60
	if start < 0 {
		start = 0
	}
	end := idx + 1
	return strings.TrimSpace(text[start:end])
}

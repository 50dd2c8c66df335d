// Package analyzer extracts inbox rule suggestions, attention items,
// and calendar insights from raw messages and events. Everything here
// is pure pattern matching: no LLM calls, deterministic output, and a
// batch with no findings is a success, not an error.
package analyzer

import (
	"time"
)

// PatternType says what part of a sender a suggested rule matches.
type PatternType string

const (
	PatternDomain PatternType = "domain"
	PatternSender PatternType = "sender"
)

// Suggestion statuses.
const (
	SuggestionPending  = "pending"
	SuggestionApproved = "approved"
	SuggestionRejected = "rejected"
	SuggestionExpired  = "expired"
)

// RuleSuggestion proposes a labeling rule inferred from repeated
// senders in the inbox.
type RuleSuggestion struct {
	ID             string      `json:"id"`
	Account        string      `json:"account"`
	PatternType    PatternType `json:"pattern_type"`
	PatternValue   string      `json:"pattern_value"`
	SuggestedLabel string      `json:"suggested_label"`
	EmailCount     int         `json:"email_count"`
	Confidence     float64     `json:"confidence"`
	Examples       []string    `json:"examples,omitempty"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
}

// AttentionReason says why an email needs the user's attention.
type AttentionReason string

const (
	ReasonQuestion AttentionReason = "question"
	ReasonRequest  AttentionReason = "request"
	ReasonUrgent   AttentionReason = "urgent"
	ReasonDeadline AttentionReason = "deadline"
)

// Attention item statuses.
const (
	AttentionActive      = "active"
	AttentionDismissed   = "dismissed"
	AttentionSnoozed     = "snoozed"
	AttentionTaskCreated = "task_created"
)

// AttentionItem marks one email as needing a reply or action from the
// user.
type AttentionItem struct {
	ID        string          `json:"id"`
	Account   string          `json:"account"`
	EmailID   string          `json:"email_id"`
	From      string          `json:"from"`
	Subject   string          `json:"subject"`
	Reason    AttentionReason `json:"reason"`
	Evidence  string          `json:"evidence,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// CalendarInsightKind distinguishes the calendar findings.
type CalendarInsightKind string

const (
	InsightConflict CalendarInsightKind = "conflict"
	InsightPrep     CalendarInsightKind = "prep"
)

// CalendarInsight flags an overlapping pair of events or an upcoming
// event that likely needs preparation.
type CalendarInsight struct {
	Kind     CalendarInsightKind `json:"kind"`
	EventIDs []string            `json:"event_ids"`
	Summary  string              `json:"summary"`
	When     time.Time           `json:"when"`
}

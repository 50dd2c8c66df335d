package types

import (
	"context"
)

// TaskRepository is the thin CRUD surface over a task backend
// (Smartsheet, Firestore). The core never mutates through it directly;
// only the action confirmation step does.
type TaskRepository interface {
	Fetch(ctx context.Context, filters map[string]string) ([]Task, error)
	Update(ctx context.Context, id string, fieldDiff map[string]interface{}) (*Task, error)
	Create(ctx context.Context, fields map[string]interface{}) (*Task, error)
}

// MailRepository is the thin read surface over a mail backend.
type MailRepository interface {
	List(ctx context.Context, query string, limit int) ([]EmailMessage, error)
	Get(ctx context.Context, id string) (*EmailMessage, error)
}

// ConversationLog is the append-only per-scope chat history. Scope keys
// are task ids, email thread ids, or calendar domains.
type ConversationLog interface {
	Append(scopeKey string, turn LoggedTurn) error
	List(scopeKey string, limit int) ([]LoggedTurn, error)
}

// AttachmentFetcher downloads attachment bytes. A nil result means the
// download failed and the attachment must be omitted, never treated as
// a fatal error.
type AttachmentFetcher interface {
	Download(ctx context.Context, url string) []byte
}

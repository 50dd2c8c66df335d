package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	gm "google.golang.org/api/gmail/v1"

	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// Repository reads a Gmail mailbox through the shared MailRepository
// interface.
type Repository struct {
	svc *gm.Service
}

// NewRepository authenticates and builds a mailbox reader.
func NewRepository(ctx context.Context, credentialsPath, tokenPath string) (*Repository, error) {
	svc, err := newService(ctx, credentialsPath, tokenPath)
	if err != nil {
		return nil, fmt.Errorf("gmail auth: %w", err)
	}
	return &Repository{svc: svc}, nil
}

var _ types.MailRepository = (*Repository)(nil)

// List returns messages matching a Gmail search query, newest first.
// Individual message fetch failures are skipped, not fatal.
func (r *Repository) List(ctx context.Context, query string, limit int) ([]types.EmailMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	resp, err := r.svc.Users.Messages.List("me").
		Q(query).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]types.EmailMessage, 0, len(resp.Messages))
	for _, stub := range resp.Messages {
		msg, err := r.Get(ctx, stub.Id)
		if err != nil {
			logging.Get(logging.CategoryMail).Warn("skipping message %s: %v", stub.Id, err)
			continue
		}
		out = append(out, *msg)
	}

	logging.Get(logging.CategoryMail).Debug("listed %d messages for query %q", len(out), query)
	return out, nil
}

// Get fetches one full message by id.
func (r *Repository) Get(ctx context.Context, id string) (*types.EmailMessage, error) {
	msg, err := r.svc.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	headers := headerMap(msg.Payload.Headers)
	plain, html := extractBodies(msg.Payload)

	email := &types.EmailMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     headers["From"],
		To:       splitAddresses(headers["To"]),
		Cc:       splitAddresses(headers["Cc"]),
		Subject:  headers["Subject"],
		Snippet:  msg.Snippet,
		Body:     plain,
		HTMLBody: html,
		Labels:   msg.LabelIds,
	}
	email.Date = parseDate(headers["Date"], msg.InternalDate)
	return email, nil
}

// ApplyLabel adds a label to a message. Used when an approved rule is
// enacted.
func (r *Repository) ApplyLabel(ctx context.Context, messageID, labelID string) error {
	_, err := r.svc.Users.Messages.Modify("me", messageID, &gm.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("apply label to %s: %w", messageID, err)
	}
	return nil
}

// extractBodies walks the MIME tree picking the first text/plain and
// text/html parts.
func extractBodies(payload *gm.MessagePart) (plain, html string) {
	var walk func(*gm.MessagePart)
	walk = func(part *gm.MessagePart) {
		if part.Body != nil && part.Body.Data != "" {
			decoded, err := decodeBase64URL(part.Body.Data)
			if err == nil {
				switch {
				case strings.HasPrefix(part.MimeType, "text/plain") && plain == "":
					plain = decoded
				case strings.HasPrefix(part.MimeType, "text/html") && html == "":
					html = decoded
				}
			}
		}
		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(payload)
	return plain, html
}

func headerMap(headers []*gm.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}

func splitAddresses(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	if parsed, err := mail.ParseAddressList(header); err == nil {
		out := make([]string, 0, len(parsed))
		for _, a := range parsed {
			out = append(out, a.Address)
		}
		return out
	}
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDate(header string, internalMillis int64) time.Time {
	if header != "" {
		if t, err := mail.ParseDate(header); err == nil {
			return t
		}
	}
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis)
	}
	return time.Time{}
}

// decodeBase64URL decodes Gmail's unpadded URL-safe base64.
func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

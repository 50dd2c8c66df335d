package analyzer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"dataassist/internal/types"
)

// ParseRawEmail converts a raw RFC 5322 message into the shared email
// record. HTML-only messages get their text extracted so downstream
// analyzers always see plain text.
func ParseRawEmail(id string, raw []byte) (*types.EmailMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	msg := &types.EmailMessage{
		ID:       id,
		From:     env.GetHeader("From"),
		Subject:  env.GetHeader("Subject"),
		Body:     env.Text,
		HTMLBody: env.HTML,
	}
	msg.To = splitAddressList(env.GetHeader("To"))
	msg.Cc = splitAddressList(env.GetHeader("Cc"))

	if date, err := env.Date(); err == nil {
		msg.Date = date
	} else {
		msg.Date = time.Now()
	}

	if msg.Body == "" && msg.HTMLBody != "" {
		msg.Body = StripHTML(msg.HTMLBody)
	}
	return msg, nil
}

func splitAddressList(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
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

// Package types holds the shared data model for the DATA assistant:
// tasks, email, calendar events, chat messages, and the tool-calling
// structures exchanged with the LLM backends.
package types

import (
	"time"
)

// Role identifies who produced a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPartType distinguishes text from inlined image content.
type ContentPartType string

const (
	PartText  ContentPartType = "text"
	PartImage ContentPartType = "image"
)

// ContentPart is one piece of a message. Text parts carry Text; image
// parts carry base64 Data plus the source MediaType.
type ContentPart struct {
	Type      ContentPartType `json:"type"`
	Text      string          `json:"text,omitempty"`
	MediaType string          `json:"media_type,omitempty"`
	Data      string          `json:"data,omitempty"`
}

// Message is a single turn in the shared message format. Each LLM backend
// translates this to its own wire format internally.
type Message struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// TextMessage builds a plain single-part text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []ContentPart{{Type: PartText, Text: text}}}
}

// PlainText joins the text parts of a message, ignoring images.
func (m Message) PlainText() string {
	out := ""
	for _, p := range m.Parts {
		if p.Type == PartText {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}

// HasImages reports whether any part of the message is an image.
func (m Message) HasImages() bool {
	for _, p := range m.Parts {
		if p.Type == PartImage {
			return true
		}
	}
	return false
}

// ToolDefinition describes a tool the LLM may invoke.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolCall is a tool invocation requested by the LLM. The untyped Input
// map never crosses further into the system: the action package converts
// it into a typed action at the parse boundary.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// Task is the repository-agnostic task record. Source names the backing
// repository ("smartsheet", "firestore") for portfolio-scope chats that
// mix tasks from several repositories.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        string     `json:"due_date,omitempty"` // YYYY-MM-DD
	AssignedTo     string     `json:"assigned_to,omitempty"`
	Project        string     `json:"project,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	ContactFlag    bool       `json:"contact_flag,omitempty"`
	Recurring      string     `json:"recurring,omitempty"`
	EstimatedHours string     `json:"estimated_hours,omitempty"`
	Number         *float64   `json:"number,omitempty"`
	Source         string     `json:"source,omitempty"`
	AttachmentURLs []string   `json:"attachment_urls,omitempty"`
	ModifiedAt     *time.Time `json:"modified_at,omitempty"`
}

// EmailMessage is the repository-agnostic email record.
type EmailMessage struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id,omitempty"`
	From     string    `json:"from"`
	To       []string  `json:"to"`
	Cc       []string  `json:"cc,omitempty"`
	Subject  string    `json:"subject"`
	Snippet  string    `json:"snippet,omitempty"`
	Body     string    `json:"body,omitempty"`
	HTMLBody string    `json:"html_body,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
	Date     time.Time `json:"date"`
}

// CalendarEvent is the repository-agnostic calendar record.
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Organizer string    `json:"organizer,omitempty"`
	Attendees []string  `json:"attendees,omitempty"`
	Location  string    `json:"location,omitempty"`
}

// LoggedTurn is one persisted conversation turn, keyed by a scope
// (task id, email thread, or calendar domain).
type LoggedTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

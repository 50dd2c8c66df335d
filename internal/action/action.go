// Package action defines the typed task and email mutations the
// assistant can propose. Tool calls from the LLM are converted into
// these types at one parse boundary and validated before anything
// touches a repository. Nothing is applied without confirmation.
package action

import (
	"fmt"
	"time"
)

// Kind identifies one task mutation.
type Kind string

const (
	MarkComplete         Kind = "mark_complete"
	UpdateStatus         Kind = "update_status"
	UpdatePriority       Kind = "update_priority"
	UpdateDueDate        Kind = "update_due_date"
	AddComment           Kind = "add_comment"
	UpdateNumber         Kind = "update_number"
	UpdateContactFlag    Kind = "update_contact_flag"
	UpdateRecurring      Kind = "update_recurring"
	UpdateProject        Kind = "update_project"
	UpdateTaskTitle      Kind = "update_task_title"
	UpdateAssignedTo     Kind = "update_assigned_to"
	UpdateNotes          Kind = "update_notes"
	UpdateEstimatedHours Kind = "update_estimated_hours"
)

// Statuses is the closed set of task status values.
var Statuses = []string{"Not Started", "In Progress", "Complete", "Blocked", "On Hold"}

// Priorities is the closed set of task priority values.
var Priorities = []string{"Low", "Medium", "High", "Urgent"}

// RecurringValues is the closed set of recurrence values.
var RecurringValues = []string{"none", "daily", "weekly", "biweekly", "monthly", "quarterly", "yearly"}

// EstimatedHourBuckets is the closed set of effort estimates.
var EstimatedHourBuckets = []string{"<1", "1-2", "2-4", "4-8", "8+"}

// TaskUpdate is one proposed task mutation. Exactly the fields the Kind
// requires are set; Validate enforces that.
type TaskUpdate struct {
	Kind           Kind     `json:"kind"`
	Status         string   `json:"status,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	DueDate        string   `json:"due_date,omitempty"` // YYYY-MM-DD
	Comment        string   `json:"comment,omitempty"`
	Number         *float64 `json:"number,omitempty"`
	ContactFlag    *bool    `json:"contact_flag,omitempty"`
	Recurring      string   `json:"recurring,omitempty"`
	Project        string   `json:"project,omitempty"`
	Title          string   `json:"title,omitempty"`
	AssignedTo     string   `json:"assigned_to,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	EstimatedHours string   `json:"estimated_hours,omitempty"`
	Reason         string   `json:"reason,omitempty"` // free text, never validated
}

// PortfolioUpdate targets a task outside the current chat scope. Both
// the update and the target are mandatory.
type PortfolioUpdate struct {
	TaskUpdate   TaskUpdate `json:"task_update"`
	TargetTaskID string     `json:"target_task_id"`
	Source       string     `json:"source"`
}

// EmailDraftUpdate revises an existing pending draft. Nil fields mean
// keep the current value; at least one must be set.
type EmailDraftUpdate struct {
	Subject *string `json:"subject,omitempty"`
	Body    *string `json:"body,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// PendingEmailDraft is a freshly proposed outbound email.
type PendingEmailDraft struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Reason    string `json:"reason,omitempty"`
}

// ValidationError reports one invalid field on a proposed action.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid action: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate checks that the update carries exactly what its kind needs
// and that enum fields hold allowed values.
func (u TaskUpdate) Validate() error {
	switch u.Kind {
	case MarkComplete:
		return nil
	case UpdateStatus:
		if u.Status == "" {
			return invalid("status", "required for %s", u.Kind)
		}
		if !oneOf(u.Status, Statuses) {
			return invalid("status", "%q is not one of %v", u.Status, Statuses)
		}
	case UpdatePriority:
		if u.Priority == "" {
			return invalid("priority", "required for %s", u.Kind)
		}
		if !oneOf(u.Priority, Priorities) {
			return invalid("priority", "%q is not one of %v", u.Priority, Priorities)
		}
	case UpdateDueDate:
		if u.DueDate == "" {
			return invalid("due_date", "required for %s", u.Kind)
		}
		if _, err := time.Parse("2006-01-02", u.DueDate); err != nil {
			return invalid("due_date", "%q is not a YYYY-MM-DD date", u.DueDate)
		}
	case AddComment:
		if u.Comment == "" {
			return invalid("comment", "required for %s", u.Kind)
		}
	case UpdateNumber:
		if u.Number == nil {
			return invalid("number", "required for %s", u.Kind)
		}
	case UpdateContactFlag:
		if u.ContactFlag == nil {
			return invalid("contact_flag", "required for %s", u.Kind)
		}
	case UpdateRecurring:
		if u.Recurring == "" {
			return invalid("recurring", "required for %s", u.Kind)
		}
		if !oneOf(u.Recurring, RecurringValues) {
			return invalid("recurring", "%q is not one of %v", u.Recurring, RecurringValues)
		}
	case UpdateProject:
		if u.Project == "" {
			return invalid("project", "required for %s", u.Kind)
		}
	case UpdateTaskTitle:
		if u.Title == "" {
			return invalid("title", "required for %s", u.Kind)
		}
	case UpdateAssignedTo:
		if u.AssignedTo == "" {
			return invalid("assigned_to", "required for %s", u.Kind)
		}
	case UpdateNotes:
		if u.Notes == "" {
			return invalid("notes", "required for %s", u.Kind)
		}
	case UpdateEstimatedHours:
		if u.EstimatedHours == "" {
			return invalid("estimated_hours", "required for %s", u.Kind)
		}
		if !oneOf(u.EstimatedHours, EstimatedHourBuckets) {
			return invalid("estimated_hours", "%q is not one of %v", u.EstimatedHours, EstimatedHourBuckets)
		}
	default:
		return invalid("kind", "unknown action kind %q", u.Kind)
	}
	return nil
}

// Validate checks the wrapped update plus the portfolio target fields.
func (p PortfolioUpdate) Validate() error {
	if p.TargetTaskID == "" {
		return invalid("target_task_id", "required for portfolio updates")
	}
	if p.Source == "" {
		return invalid("source", "required for portfolio updates")
	}
	return p.TaskUpdate.Validate()
}

// Validate requires at least one of subject or body.
func (u EmailDraftUpdate) Validate() error {
	if u.Subject == nil && u.Body == nil {
		return invalid("subject", "draft update must change subject or body")
	}
	return nil
}

// Validate requires recipient, subject, and body.
func (d PendingEmailDraft) Validate() error {
	if d.Recipient == "" {
		return invalid("recipient", "required for a new draft")
	}
	if d.Subject == "" {
		return invalid("subject", "required for a new draft")
	}
	if d.Body == "" {
		return invalid("body", "required for a new draft")
	}
	return nil
}

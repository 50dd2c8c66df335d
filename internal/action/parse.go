package action

import (
	"dataassist/internal/types"
)

// The functions here are the single parse boundary between the untyped
// tool-call input maps from the LLM and the typed action model. Every
// returned action has already passed Validate.

func strField(input map[string]interface{}, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

func floatField(input map[string]interface{}, key string) *float64 {
	if v, ok := input[key].(float64); ok {
		return &v
	}
	return nil
}

func boolField(input map[string]interface{}, key string) *bool {
	if v, ok := input[key].(bool); ok {
		return &v
	}
	return nil
}

func strPtrField(input map[string]interface{}, key string) *string {
	if v, ok := input[key].(string); ok {
		return &v
	}
	return nil
}

func taskUpdateFromInput(input map[string]interface{}) (TaskUpdate, error) {
	u := TaskUpdate{
		Kind:           Kind(strField(input, "kind")),
		Status:         strField(input, "status"),
		Priority:       strField(input, "priority"),
		DueDate:        strField(input, "due_date"),
		Comment:        strField(input, "comment"),
		Number:         floatField(input, "number"),
		ContactFlag:    boolField(input, "contact_flag"),
		Recurring:      strField(input, "recurring"),
		Project:        strField(input, "project"),
		Title:          strField(input, "title"),
		AssignedTo:     strField(input, "assigned_to"),
		Notes:          strField(input, "notes"),
		EstimatedHours: strField(input, "estimated_hours"),
		Reason:         strField(input, "reason"),
	}
	if err := u.Validate(); err != nil {
		return TaskUpdate{}, err
	}
	return u, nil
}

// FromToolCall parses an update_task tool call.
func FromToolCall(tc types.ToolCall) (TaskUpdate, error) {
	return taskUpdateFromInput(tc.Input)
}

// PortfolioFromToolCall parses an update_portfolio_task tool call.
func PortfolioFromToolCall(tc types.ToolCall) (PortfolioUpdate, error) {
	u, err := taskUpdateFromInput(tc.Input)
	if err != nil {
		return PortfolioUpdate{}, err
	}
	p := PortfolioUpdate{
		TaskUpdate:   u,
		TargetTaskID: strField(tc.Input, "target_task_id"),
		Source:       strField(tc.Input, "source"),
	}
	if err := p.Validate(); err != nil {
		return PortfolioUpdate{}, err
	}
	return p, nil
}

// EmailDraftUpdateFromToolCall parses an update_email_draft tool call.
func EmailDraftUpdateFromToolCall(tc types.ToolCall) (EmailDraftUpdate, error) {
	u := EmailDraftUpdate{
		Subject: strPtrField(tc.Input, "subject"),
		Body:    strPtrField(tc.Input, "body"),
		Reason:  strField(tc.Input, "reason"),
	}
	if err := u.Validate(); err != nil {
		return EmailDraftUpdate{}, err
	}
	return u, nil
}

// PendingEmailDraftFromToolCall parses a create_email_draft tool call.
func PendingEmailDraftFromToolCall(tc types.ToolCall) (PendingEmailDraft, error) {
	d := PendingEmailDraft{
		Recipient: strField(tc.Input, "recipient"),
		Subject:   strField(tc.Input, "subject"),
		Body:      strField(tc.Input, "body"),
		Reason:    strField(tc.Input, "reason"),
	}
	if err := d.Validate(); err != nil {
		return PendingEmailDraft{}, err
	}
	return d, nil
}

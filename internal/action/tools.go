package action

import (
	"dataassist/internal/types"
)

// Tool definitions offered to the LLM. Input schemas mirror the typed
// action model so that parse failures stay rare.

func enumProperty(desc string, values []string) map[string]interface{} {
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return map[string]interface{}{"type": "string", "description": desc, "enum": vals}
}

func kindEnum() map[string]interface{} {
	kinds := []string{
		string(MarkComplete), string(UpdateStatus), string(UpdatePriority),
		string(UpdateDueDate), string(AddComment), string(UpdateNumber),
		string(UpdateContactFlag), string(UpdateRecurring), string(UpdateProject),
		string(UpdateTaskTitle), string(UpdateAssignedTo), string(UpdateNotes),
		string(UpdateEstimatedHours),
	}
	return enumProperty("The field change being proposed.", kinds)
}

func taskUpdateProperties() map[string]interface{} {
	return map[string]interface{}{
		"kind":     kindEnum(),
		"status":   enumProperty("New status, for update_status.", Statuses),
		"priority": enumProperty("New priority, for update_priority.", Priorities),
		"due_date": map[string]interface{}{
			"type":        "string",
			"description": "New due date as YYYY-MM-DD, for update_due_date.",
		},
		"comment": map[string]interface{}{
			"type":        "string",
			"description": "Comment text, for add_comment.",
		},
		"number": map[string]interface{}{
			"type":        "number",
			"description": "New numeric value, for update_number.",
		},
		"contact_flag": map[string]interface{}{
			"type":        "boolean",
			"description": "New contact flag, for update_contact_flag.",
		},
		"recurring": enumProperty("New recurrence, for update_recurring.", RecurringValues),
		"project": map[string]interface{}{
			"type":        "string",
			"description": "New project name, for update_project.",
		},
		"title": map[string]interface{}{
			"type":        "string",
			"description": "New task title, for update_task_title.",
		},
		"assigned_to": map[string]interface{}{
			"type":        "string",
			"description": "New assignee, for update_assigned_to.",
		},
		"notes": map[string]interface{}{
			"type":        "string",
			"description": "Replacement notes text, for update_notes.",
		},
		"estimated_hours": enumProperty("New effort estimate, for update_estimated_hours.", EstimatedHourBuckets),
		"reason": map[string]interface{}{
			"type":        "string",
			"description": "One sentence on why this change is being proposed.",
		},
	}
}

// UpdateTaskTool proposes one change to the task currently in scope.
func UpdateTaskTool() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "update_task",
		Description: "Propose one change to the task currently being discussed. The change is shown to the user for confirmation before anything is saved.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": taskUpdateProperties(),
			"required":   []interface{}{"kind"},
		},
	}
}

// UpdatePortfolioTaskTool proposes a change to any task by id.
func UpdatePortfolioTaskTool() types.ToolDefinition {
	props := taskUpdateProperties()
	props["target_task_id"] = map[string]interface{}{
		"type":        "string",
		"description": "ID of the task to change.",
	}
	props["source"] = map[string]interface{}{
		"type":        "string",
		"description": "Repository the task lives in, as given in the task list.",
	}
	return types.ToolDefinition{
		Name:        "update_portfolio_task",
		Description: "Propose one change to any task in the portfolio, identified by its id and source repository. The change is shown to the user for confirmation before anything is saved.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": props,
			"required":   []interface{}{"kind", "target_task_id", "source"},
		},
	}
}

// UpdateEmailDraftTool revises the pending outbound draft.
func UpdateEmailDraftTool() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "update_email_draft",
		Description: "Revise the pending email draft. Provide only the fields that change.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"subject": map[string]interface{}{"type": "string", "description": "Replacement subject line."},
				"body":    map[string]interface{}{"type": "string", "description": "Replacement body text."},
				"reason":  map[string]interface{}{"type": "string", "description": "One sentence on why the revision helps."},
			},
		},
	}
}

// CreateEmailDraftTool proposes a new outbound email.
func CreateEmailDraftTool() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "create_email_draft",
		Description: "Propose a new outbound email. The draft is held for the user to review and send; nothing is sent automatically.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"recipient": map[string]interface{}{"type": "string", "description": "Email address of the recipient."},
				"subject":   map[string]interface{}{"type": "string", "description": "Subject line."},
				"body":      map[string]interface{}{"type": "string", "description": "Body text."},
				"reason":    map[string]interface{}{"type": "string", "description": "One sentence on why this email is being proposed."},
			},
			"required": []interface{}{"recipient", "subject", "body"},
		},
	}
}

// Catalog returns the tool definitions for the given names, in the
// order requested. Unknown names are skipped.
func Catalog(names []string) []types.ToolDefinition {
	all := map[string]func() types.ToolDefinition{
		"update_task":           UpdateTaskTool,
		"update_portfolio_task": UpdatePortfolioTaskTool,
		"update_email_draft":    UpdateEmailDraftTool,
		"create_email_draft":    CreateEmailDraftTool,
	}
	var out []types.ToolDefinition
	for _, name := range names {
		if build, ok := all[name]; ok {
			out = append(out, build())
		}
	}
	return out
}

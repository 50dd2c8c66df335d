package action

import (
	"context"
	"fmt"

	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// Apply writes one confirmed update to the task repository and returns
// the refreshed task. Callers are responsible for the confirmation
// gate; Apply itself only revalidates and translates the update into a
// field diff.
func Apply(ctx context.Context, repo types.TaskRepository, u TaskUpdate, taskID string) (*types.Task, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	diff := map[string]interface{}{}
	switch u.Kind {
	case MarkComplete:
		diff["status"] = "Complete"
	case UpdateStatus:
		diff["status"] = u.Status
	case UpdatePriority:
		diff["priority"] = u.Priority
	case UpdateDueDate:
		diff["due_date"] = u.DueDate
	case AddComment:
		diff["comment"] = u.Comment
	case UpdateNumber:
		diff["number"] = *u.Number
	case UpdateContactFlag:
		diff["contact_flag"] = *u.ContactFlag
	case UpdateRecurring:
		diff["recurring"] = u.Recurring
	case UpdateProject:
		diff["project"] = u.Project
	case UpdateTaskTitle:
		diff["title"] = u.Title
	case UpdateAssignedTo:
		diff["assigned_to"] = u.AssignedTo
	case UpdateNotes:
		diff["notes"] = u.Notes
	case UpdateEstimatedHours:
		diff["estimated_hours"] = u.EstimatedHours
	}

	logging.Executor("applying %s to task %s", u.Kind, taskID)
	return repo.Update(ctx, taskID, diff)
}

// ApplyPortfolio writes one confirmed portfolio update through the
// repository registered for its source.
func ApplyPortfolio(ctx context.Context, repos map[string]types.TaskRepository, p PortfolioUpdate) (*types.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	repo, ok := repos[p.Source]
	if !ok {
		return nil, invalid("source", "no repository registered for %q", p.Source)
	}
	return Apply(ctx, repo, p.TaskUpdate, p.TargetTaskID)
}

// ConfirmationText renders the one-sentence confirmation shown when the
// model proposed an update but wrote no prose of its own.
func ConfirmationText(u TaskUpdate) string {
	switch u.Kind {
	case MarkComplete:
		return "I'll mark this task complete."
	case UpdateStatus:
		return fmt.Sprintf("I'll set the status to %s.", u.Status)
	case UpdatePriority:
		return fmt.Sprintf("I'll set the priority to %s.", u.Priority)
	case UpdateDueDate:
		return fmt.Sprintf("I'll move the due date to %s.", u.DueDate)
	case AddComment:
		return fmt.Sprintf("I'll add the comment: %q.", u.Comment)
	case UpdateNumber:
		return fmt.Sprintf("I'll set the number field to %g.", *u.Number)
	case UpdateContactFlag:
		if *u.ContactFlag {
			return "I'll flag this task for contact."
		}
		return "I'll clear the contact flag on this task."
	case UpdateRecurring:
		return fmt.Sprintf("I'll set the recurrence to %s.", u.Recurring)
	case UpdateProject:
		return fmt.Sprintf("I'll move this task to the %s project.", u.Project)
	case UpdateTaskTitle:
		return fmt.Sprintf("I'll rename this task to %q.", u.Title)
	case UpdateAssignedTo:
		return fmt.Sprintf("I'll assign this task to %s.", u.AssignedTo)
	case UpdateNotes:
		return "I'll update the notes on this task."
	case UpdateEstimatedHours:
		return fmt.Sprintf("I'll set the estimate to %s hours.", u.EstimatedHours)
	}
	return "I'll make that change."
}

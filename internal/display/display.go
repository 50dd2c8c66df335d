// Package display provides terminal formatting for assistant output.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"dataassist/internal/analyzer"
	"dataassist/internal/types"
)

var (
	// Styles
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	Accent   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563eb"))

	UrgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	HighStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	MediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ca8a04"))
	LowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

// PriorityDot returns a colored dot for a task priority.
func PriorityDot(priority string) string {
	switch strings.ToLower(priority) {
	case "urgent":
		return UrgentStyle.Render("●")
	case "high":
		return HighStyle.Render("●")
	case "medium":
		return MediumStyle.Render("○")
	case "low":
		return LowStyle.Render("○")
	default:
		return Dim.Render("·")
	}
}

// TaskLine formats one task as a single terminal line.
func TaskLine(task types.Task) string {
	parts := []string{PriorityDot(task.Priority), Bold.Render(Truncate(task.Title, 60))}
	if task.Status != "" {
		parts = append(parts, Muted.Render("["+task.Status+"]"))
	}
	if task.DueDate != "" {
		parts = append(parts, Dim.Render("due "+task.DueDate))
	}
	if task.AssignedTo != "" {
		parts = append(parts, Dim.Render("→ "+task.AssignedTo))
	}
	return strings.Join(parts, " ")
}

// ConfirmPrompt formats a proposed action for the yes/no gate.
func ConfirmPrompt(confirmation string, task *types.Task) string {
	var b strings.Builder
	b.WriteString(Accent.Render("Proposed action: "))
	b.WriteString(confirmation)
	b.WriteString("\n")
	if task != nil {
		b.WriteString("  " + TaskLine(*task) + "\n")
	}
	b.WriteString(Muted.Render("Apply? [y/N] "))
	return b.String()
}

// SuggestionLine formats a rule suggestion with its evidence summary.
func SuggestionLine(s analyzer.RuleSuggestion) string {
	conf := Dim.Render(fmt.Sprintf("%.0f%%", s.Confidence*100))
	pattern := Bold.Render(s.PatternValue)
	return fmt.Sprintf("%s %s → %s  %s (%d emails) %s",
		statusDot(s.Status), pattern, s.SuggestedLabel, conf, s.EmailCount, Muted.Render(string(s.PatternType)))
}

// AttentionLine formats an attention item.
func AttentionLine(item analyzer.AttentionItem) string {
	reason := reasonBadge(item.Reason)
	from := Bold.Render(Truncate(item.From, 40))
	subject := Truncate(item.Subject, 50)
	return fmt.Sprintf("%s %s  %s  %s", reason, from, subject, Dim.Render(TimeAgo(item.CreatedAt)))
}

// InsightLine formats a calendar insight.
func InsightLine(in analyzer.CalendarInsight) string {
	badge := Accent.Render("[prep]")
	if in.Kind == analyzer.InsightConflict {
		badge = ErrStyle.Render("[conflict]")
	}
	return fmt.Sprintf("%s %s  %s", badge, in.Summary, Dim.Render(in.When.Format("Jan 2 15:04")))
}

func statusDot(status string) string {
	switch status {
	case analyzer.SuggestionPending:
		return MediumStyle.Render("●")
	case analyzer.SuggestionApproved:
		return Success.Render("✓")
	case analyzer.SuggestionRejected:
		return ErrStyle.Render("✗")
	default:
		return Dim.Render("·")
	}
}

func reasonBadge(reason analyzer.AttentionReason) string {
	label := fmt.Sprintf("%-8s", strings.ToUpper(string(reason)))
	switch reason {
	case analyzer.ReasonUrgent, analyzer.ReasonDeadline:
		return UrgentStyle.Render(label)
	case analyzer.ReasonQuestion:
		return Accent.Render(label)
	default:
		return MediumStyle.Render(label)
	}
}

// TimeAgo formats a timestamp as a relative time.
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Truncate shortens a string to maxLen, adding ellipsis if needed.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(format string, args ...any) {
	fmt.Println(Success.Render("✓") + " " + fmt.Sprintf(format, args...))
}

// ErrorMsg prints a red X + message to stderr.
func ErrorMsg(format string, args ...any) {
	fmt.Fprintln(os.Stderr, ErrStyle.Render("✗")+" "+fmt.Sprintf(format, args...))
}

// Header prints a section header.
func Header(title string) {
	fmt.Println(Bold.Render(title))
}

// SubHeader prints a dim subsection label.
func SubHeader(title string) {
	fmt.Println(Muted.Render(title))
}

package analyzer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"dataassist/internal/types"
)

// Report bundles the findings of one full analysis run.
type Report struct {
	Suggestions []RuleSuggestion
	Attention   []AttentionItem
	Calendar    []CalendarInsight
}

// Service runs the analyzers over one account's data. The email
// analyzers run in parallel; both operate on the same batch.
type Service struct {
	inbox     *InboxAnalyzer
	attention *AttentionAnalyzer
	calendar  *CalendarAnalyzer
}

// NewService wires the three analyzers together.
func NewService(inbox *InboxAnalyzer, attention *AttentionAnalyzer, calendar *CalendarAnalyzer) *Service {
	return &Service{inbox: inbox, attention: attention, calendar: calendar}
}

// Run analyzes one batch. Analyzers are pure, so the only error path is
// context cancellation.
func (s *Service) Run(ctx context.Context, emails []types.EmailMessage, events []types.CalendarEvent) (*Report, error) {
	report := &Report{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Suggestions = DedupeSuggestions(s.inbox.Analyze(emails))
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Attention = s.attention.Analyze(emails)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Calendar = s.calendar.Analyze(events)
	return report, nil
}

package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"dataassist/internal/logging"
	"dataassist/internal/types"
)

var prepTitleRe = regexp.MustCompile(`(?i)\b(review|presentation|demo|interview|1:1|one.on.one|planning|retro|board|kickoff)\b`)

// prepWindow is how far ahead prep insights look.
const prepWindow = 48 * time.Hour

// CalendarAnalyzer flags overlapping events and upcoming events that
// likely need preparation.
type CalendarAnalyzer struct {
	now func() time.Time
}

// NewCalendarAnalyzer builds the analyzer.
func NewCalendarAnalyzer() *CalendarAnalyzer {
	return &CalendarAnalyzer{now: time.Now}
}

// Analyze scans a batch of events. Conflicts are reported once per
// overlapping pair.
func (a *CalendarAnalyzer) Analyze(events []types.CalendarEvent) []CalendarInsight {
	timer := logging.StartTimer(logging.CategoryAnalyzer, "CalendarAnalyze")
	defer timer.Stop()

	sorted := make([]types.CalendarEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var out []CalendarInsight
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if !sorted[j].Start.Before(sorted[i].End) {
				break
			}
			out = append(out, CalendarInsight{
				Kind:     InsightConflict,
				EventIDs: []string{sorted[i].ID, sorted[j].ID},
				Summary:  fmt.Sprintf("%q overlaps %q", sorted[i].Title, sorted[j].Title),
				When:     sorted[j].Start,
			})
		}
	}

	now := a.now()
	for _, ev := range sorted {
		if ev.Start.Before(now) || ev.Start.After(now.Add(prepWindow)) {
			continue
		}
		if !needsPrep(ev) {
			continue
		}
		out = append(out, CalendarInsight{
			Kind:     InsightPrep,
			EventIDs: []string{ev.ID},
			Summary:  fmt.Sprintf("%q on %s likely needs preparation", ev.Title, ev.Start.Format("Mon Jan 2 15:04")),
			When:     ev.Start,
		})
	}

	logging.Analyzer("calendar analysis: %d events -> %d insights", len(events), len(out))
	return out
}

// needsPrep flags meetings whose title suggests material to prepare, or
// larger meetings the user is organizing.
func needsPrep(ev types.CalendarEvent) bool {
	if prepTitleRe.MatchString(ev.Title) {
		return true
	}
	return len(ev.Attendees) >= 4 && strings.TrimSpace(ev.Organizer) != ""
}

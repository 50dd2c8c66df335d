package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// labelFamily maps a recognizable sender pattern to a suggested label.
type labelFamily struct {
	label   string
	domain  *regexp.Regexp
	subject *regexp.Regexp
}

var labelFamilies = []labelFamily{
	{
		label:   "Promotional",
		domain:  regexp.MustCompile(`(?i)(news(letter)?|marketing|promo|deals|offers)\.`),
		subject: regexp.MustCompile(`(?i)\b(sale|% off|discount|deal|offer|coupon|limited time|unsubscribe)\b`),
	},
	{
		label:   "Transactional",
		domain:  regexp.MustCompile(`(?i)(receipt|order|billing|invoice|payments?|transaction|noreply|no-reply)`),
		subject: regexp.MustCompile(`(?i)\b(receipt|order|invoice|payment|shipped|delivery|confirmation|statement)\b`),
	},
	{
		label:   "Junk",
		subject: regexp.MustCompile(`(?i)\b(you('ve| have) won|congratulations|act now|free gift|winner|claim your)\b`),
	},
}

// InboxAnalyzer suggests labeling rules from repeated uncovered
// senders.
type InboxAnalyzer struct {
	account        string
	minDomainCount int
	ttl            time.Duration
	covered        func(address string) bool
	now            func() time.Time
}

// NewInboxAnalyzer builds an analyzer for one account. covered reports
// whether an existing rule already handles the sender; nil means no
// rules exist yet.
func NewInboxAnalyzer(account string, minDomainCount int, ttl time.Duration, covered func(string) bool) *InboxAnalyzer {
	if minDomainCount < 2 {
		minDomainCount = 2
	}
	if covered == nil {
		covered = func(string) bool { return false }
	}
	return &InboxAnalyzer{
		account:        account,
		minDomainCount: minDomainCount,
		ttl:            ttl,
		covered:        covered,
		now:            time.Now,
	}
}

// Analyze scans a batch of messages and returns rule suggestions for
// repeated uncovered senders. Frequency alone triggers a suggestion;
// the label families only pick the suggested label, with a
// domain-derived fallback when none matches. Duplicate patterns within
// the batch keep the occurrence with the most examples.
func (a *InboxAnalyzer) Analyze(emails []types.EmailMessage) []RuleSuggestion {
	timer := logging.StartTimer(logging.CategoryAnalyzer, "InboxAnalyze")
	defer timer.Stop()

	type bucket struct {
		count    int
		examples []string
		label    string
	}
	domains := map[string]*bucket{}

	for _, email := range emails {
		addr := strings.ToLower(strings.TrimSpace(email.From))
		if addr == "" || a.covered(addr) {
			continue
		}
		domain := domainOf(addr)
		if domain == "" {
			continue
		}

		b, ok := domains[domain]
		if !ok {
			b = &bucket{}
			domains[domain] = b
		}
		if b.label == "" {
			b.label = classifySender(domain, email.Subject)
		}
		b.count++
		if len(b.examples) < 3 {
			b.examples = append(b.examples, email.Subject)
		}
	}

	now := a.now()
	var out []RuleSuggestion
	for domain, b := range domains {
		if b.count < a.minDomainCount {
			continue
		}
		if b.label == "" {
			b.label = defaultLabel(domain)
		}
		out = append(out, RuleSuggestion{
			ID:             uuid.NewString(),
			Account:        a.account,
			PatternType:    PatternDomain,
			PatternValue:   domain,
			SuggestedLabel: b.label,
			EmailCount:     b.count,
			Confidence:     confidenceFor(b.count),
			Examples:       b.examples,
			Status:         SuggestionPending,
			CreatedAt:      now,
			ExpiresAt:      now.Add(a.ttl),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EmailCount != out[j].EmailCount {
			return out[i].EmailCount > out[j].EmailCount
		}
		return out[i].PatternValue < out[j].PatternValue
	})

	logging.Analyzer("inbox analysis: %d emails -> %d suggestions", len(emails), len(out))
	return out
}

// confidenceFor grows with the evidence count and saturates at 0.95.
func confidenceFor(count int) float64 {
	c := 0.5 + 0.1*float64(count)
	if c > 0.95 {
		c = 0.95
	}
	return c
}

func classifySender(domain, subject string) string {
	for _, fam := range labelFamilies {
		if fam.domain != nil && fam.domain.MatchString(domain) {
			return fam.label
		}
		if fam.subject != nil && fam.subject.MatchString(subject) {
			return fam.label
		}
	}
	return ""
}

// defaultLabel derives a label from the sender domain when no family
// matched, e.g. "widgets.example.org" -> "Widgets".
func defaultLabel(domain string) string {
	name := domain
	if dot := strings.Index(name, "."); dot > 0 {
		name = name[:dot]
	}
	if name == "" {
		return "Filed"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func domainOf(address string) string {
	// Tolerate "Name <user@host>" forms.
	if start := strings.LastIndex(address, "<"); start >= 0 {
		address = strings.TrimSuffix(address[start+1:], ">")
	}
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return address[at+1:]
}

// DedupeSuggestions collapses suggestions sharing a pattern, keeping
// the one backed by the most emails.
func DedupeSuggestions(suggestions []RuleSuggestion) []RuleSuggestion {
	best := map[string]RuleSuggestion{}
	for _, s := range suggestions {
		key := string(s.PatternType) + "|" + s.PatternValue
		if cur, ok := best[key]; !ok || s.EmailCount > cur.EmailCount {
			best[key] = s
		}
	}
	out := make([]RuleSuggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatternValue < out[j].PatternValue })
	return out
}

package privacy

import (
	"regexp"
	"sort"
)

// piiPatterns are the masked-content categories scanned for in Tier 3.
// Category names are stable identifiers surfaced in PrivacyCheckResult.
var piiPatterns = map[string]*regexp.Regexp{
	// 123-45-6789 or 123 45 6789
	"ssn": regexp.MustCompile(`\b\d{3}[- ]\d{2}[- ]\d{4}\b`),
	// 13-19 digit card numbers with optional separators
	"credit_card": regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
	// routing + account pairs or explicit account number mentions
	"bank_account": regexp.MustCompile(`(?i)\b(?:account|acct|routing)\s*(?:number|no\.?|#)?\s*[:#]?\s*\d{6,17}\b`),
	// passport-style identifiers
	"passport": regexp.MustCompile(`(?i)\bpassport\s*(?:number|no\.?|#)?\s*[:#]?\s*[A-Z0-9]{6,9}\b`),
}

// ScanPII returns the sorted set of PII categories detected in text.
// An empty result means no match, which is a normal outcome.
func ScanPII(text string) []string {
	if text == "" {
		return nil
	}
	var found []string
	for category, re := range piiPatterns {
		if re.MatchString(text) {
			found = append(found, category)
		}
	}
	sort.Strings(found)
	return found
}

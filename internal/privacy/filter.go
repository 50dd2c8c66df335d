// Package privacy decides whether an email body may be shown to the
// assistant. The check is a strict three-tier short-circuit (blocklist,
// sensitive labels, PII scan) recomputed on every access: blocklist and
// labels are mutable between reads, so results are never cached.
package privacy

import (
	"strings"

	"dataassist/internal/logging"
)

// Reason explains why an email body was withheld.
type Reason string

const (
	ReasonSenderBlocked  Reason = "sender_blocked"
	ReasonLabelSensitive Reason = "label_sensitive"
	ReasonPIIDetected    Reason = "pii_detected"
	ReasonScanFailure    Reason = "scan_failure"
)

// Result is the ephemeral outcome of one privacy check.
type Result struct {
	CanSeeBody    bool
	BlockedReason Reason
	PIIDetected   []string
}

// CheckRequest carries the inputs for one privacy check.
type CheckRequest struct {
	FromAddress     string
	Labels          []string
	Body            string
	Subject         string
	Snippet         string
	OverrideGranted bool
}

// Checker applies the tiered privacy policy.
type Checker struct {
	blocklist       *Blocklist
	sensitiveLabels []string
	scan            func(string) []string
}

// NewChecker builds a Checker over the given blocklist and the exact
// sensitive label variants from config.
func NewChecker(blocklist *Blocklist, sensitiveLabels []string) *Checker {
	return &Checker{
		blocklist:       blocklist,
		sensitiveLabels: sensitiveLabels,
		scan:            ScanPII,
	}
}

// Check runs the tiers in strict priority order; the first match wins.
//
//  1. Explicit user override shares this one item: allow.
//  2. Tier 1: sender on the blocklist.
//  3. Tier 2: any label matches a sensitive marker (exact variant or
//     case-insensitive "sensitive" substring).
//  4. Tier 3: PII scan over body, then subject, then snippet when no
//     body was supplied.
//
// A panicking scanner fails closed: blocked, never leaked.
func (c *Checker) Check(req CheckRequest) (res Result) {
	if req.OverrideGranted {
		logging.PrivacyDebug("override granted for sender=%s", req.FromAddress)
		return Result{CanSeeBody: true}
	}

	if c.blocklist != nil && c.blocklist.Contains(req.FromAddress) {
		logging.Privacy("blocked: sender on blocklist")
		return Result{CanSeeBody: false, BlockedReason: ReasonSenderBlocked}
	}

	for _, label := range req.Labels {
		if c.isSensitiveLabel(label) {
			logging.Privacy("blocked: sensitive label %q", label)
			return Result{CanSeeBody: false, BlockedReason: ReasonLabelSensitive}
		}
	}

	// Fail closed: a broken scanner must never allow a leak.
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryPrivacy).Error("PII scan panic: %v", r)
			res = Result{CanSeeBody: false, BlockedReason: ReasonScanFailure}
		}
	}()

	if pii := c.scanContent(req); len(pii) > 0 {
		logging.Privacy("blocked: PII detected categories=%v", pii)
		return Result{CanSeeBody: false, BlockedReason: ReasonPIIDetected, PIIDetected: pii}
	}

	return Result{CanSeeBody: true}
}

func (c *Checker) isSensitiveLabel(label string) bool {
	for _, marker := range c.sensitiveLabels {
		if label == marker {
			return true
		}
	}
	return strings.Contains(strings.ToLower(label), "sensitive")
}

func (c *Checker) scanContent(req CheckRequest) []string {
	if pii := c.scan(req.Body); len(pii) > 0 {
		return pii
	}
	if pii := c.scan(req.Subject); len(pii) > 0 {
		return pii
	}
	if req.Body == "" {
		if pii := c.scan(req.Snippet); len(pii) > 0 {
			return pii
		}
	}
	return nil
}

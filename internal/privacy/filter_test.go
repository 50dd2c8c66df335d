package privacy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlocklist(t *testing.T, entries string) *Blocklist {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocklist.txt")
	require.NoError(t, os.WriteFile(path, []byte(entries), 0o644))
	bl, err := NewBlocklist(path)
	require.NoError(t, err)
	t.Cleanup(func() { bl.Close() })
	return bl
}

func TestCheckerTiers(t *testing.T) {
	bl := newTestBlocklist(t, "blocked@example.com\n# comment\n")
	checker := NewChecker(bl, []string{"Private", "Sensitive"})

	t.Run("clean email passes", func(t *testing.T) {
		res := checker.Check(CheckRequest{
			FromAddress: "friend@example.com",
			Body:        "lunch on tuesday?",
		})
		assert.True(t, res.CanSeeBody)
		assert.Empty(t, res.BlockedReason)
	})

	t.Run("blocked sender", func(t *testing.T) {
		res := checker.Check(CheckRequest{
			FromAddress: "BLOCKED@example.com",
			Body:        "totally clean",
		})
		assert.False(t, res.CanSeeBody)
		assert.Equal(t, ReasonSenderBlocked, res.BlockedReason)
	})

	t.Run("sensitive label exact variant", func(t *testing.T) {
		res := checker.Check(CheckRequest{
			FromAddress: "friend@example.com",
			Labels:      []string{"INBOX", "Private"},
			Body:        "clean",
		})
		assert.False(t, res.CanSeeBody)
		assert.Equal(t, ReasonLabelSensitive, res.BlockedReason)
	})

	t.Run("sensitive label substring case-insensitive", func(t *testing.T) {
		res := checker.Check(CheckRequest{
			FromAddress: "friend@example.com",
			Labels:      []string{"work/SENSITIVE-legal"},
			Body:        "clean",
		})
		assert.False(t, res.CanSeeBody)
		assert.Equal(t, ReasonLabelSensitive, res.BlockedReason)
	})

	t.Run("pii in body", func(t *testing.T) {
		res := checker.Check(CheckRequest{
			FromAddress: "friend@example.com",
			Body:        "my ssn is 123-45-6789 please keep it safe",
		})
		assert.False(t, res.CanSeeBody)
		assert.Equal(t, ReasonPIIDetected, res.BlockedReason)
		assert.Contains(t, res.PIIDetected, "ssn")
	})

	t.Run("pii in subject", func(t *testing.T) {
		res := checker.Check(CheckRequest{
			FromAddress: "friend@example.com",
			Subject:     "ssn 123-45-6789",
			Body:        "see subject",
		})
		assert.False(t, res.CanSeeBody)
		assert.Equal(t, ReasonPIIDetected, res.BlockedReason)
	})

	t.Run("snippet scanned only when body empty", func(t *testing.T) {
		withBody := checker.Check(CheckRequest{
			FromAddress: "friend@example.com",
			Body:        "clean body",
			Snippet:     "ssn 123-45-6789",
		})
		assert.True(t, withBody.CanSeeBody)

		withoutBody := checker.Check(CheckRequest{
			FromAddress: "friend@example.com",
			Snippet:     "ssn 123-45-6789",
		})
		assert.False(t, withoutBody.CanSeeBody)
		assert.Equal(t, ReasonPIIDetected, withoutBody.BlockedReason)
	})
}

func TestCheckerOverridePrecedence(t *testing.T) {
	bl := newTestBlocklist(t, "blocked@example.com\n")
	checker := NewChecker(bl, []string{"Private"})

	// Override wins over every tier, including a blocked sender
	// carrying PII.
	res := checker.Check(CheckRequest{
		FromAddress:     "blocked@example.com",
		Labels:          []string{"Private"},
		Body:            "ssn 123-45-6789",
		OverrideGranted: true,
	})
	assert.True(t, res.CanSeeBody)
	assert.Empty(t, res.BlockedReason)
}

func TestCheckerFailsClosedOnScanPanic(t *testing.T) {
	bl := newTestBlocklist(t, "")
	checker := NewChecker(bl, nil)
	checker.scan = func(string) []string { panic("regex engine exploded") }

	res := checker.Check(CheckRequest{
		FromAddress: "friend@example.com",
		Body:        "anything at all",
	})
	assert.False(t, res.CanSeeBody)
	assert.Equal(t, ReasonScanFailure, res.BlockedReason)
}

func TestScanPII(t *testing.T) {
	t.Run("no match is empty", func(t *testing.T) {
		assert.Empty(t, ScanPII("a perfectly ordinary message about lunch"))
	})

	t.Run("credit card", func(t *testing.T) {
		got := ScanPII("card: 4111 1111 1111 1111")
		assert.Contains(t, got, "credit_card")
	})

	t.Run("multiple categories sorted", func(t *testing.T) {
		got := ScanPII("ssn 123-45-6789 and card 4111-1111-1111-1111")
		require.Len(t, got, 2)
		assert.Equal(t, []string{"credit_card", "ssn"}, got)
	})
}

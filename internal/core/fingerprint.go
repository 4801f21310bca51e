package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// fingerprintSep joins the normalized fields. It cannot appear in the date
// or amount components and is harmless inside descriptions because the
// field order is fixed.
const fingerprintSep = "|"

// Fingerprint derives the deduplication identity of a transaction from its
// date, amount, description and card.
//
// Normalization is part of the identity contract and must not change:
//   - the date is truncated to the calendar day (time of day is ignored, so
//     two entries of the same purchase at different hours collide);
//   - the amount is rendered with exactly two decimal places;
//   - the description is lower-cased and trimmed (internal whitespace is
//     kept as-is);
//   - the card name is lower-cased and trimmed, empty for cash.
//
// The joined string is hashed with SHA-256 and returned as lowercase hex.
func Fingerprint(occurredAt time.Time, amount Money, description, card string) string {
	fields := []string{
		occurredAt.Format("2006-01-02"),
		amount.String(),
		strings.ToLower(strings.TrimSpace(description)),
		strings.ToLower(strings.TrimSpace(card)),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, fingerprintSep)))
	return hex.EncodeToString(sum[:])
}

// FingerprintCandidate computes the fingerprint for a candidate, using the
// given fallback time when the candidate carries no timestamp.
func FingerprintCandidate(c Candidate, now time.Time) string {
	occurred := c.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	return Fingerprint(occurred, c.Amount, c.Description, c.Card)
}

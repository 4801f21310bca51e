// Package ingest is the transaction ingestion engine: validated direct
// entry, fingerprint-deduplicated safe adds, and batch import
// reconciliation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/storage"
)

// Store is the slice of persistence the engine needs. Implemented by
// *storage.SQLiteRepository; the sentinel contract is storage.ErrConflict
// on fingerprint collisions and storage.ErrNotFound on missed lookups.
type Store interface {
	InsertTransaction(ctx context.Context, t core.Transaction) (int64, error)
	FindIDByFingerprint(ctx context.Context, fingerprint string) (int64, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// StrictAdd persists a manually entered transaction unconditionally. No
// fingerprint is computed: manual entries are exempt from deduplication
// and can legitimately repeat.
func (s *Service) StrictAdd(ctx context.Context, c core.Candidate) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	occurred := c.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}

	id, err := s.store.InsertTransaction(ctx, core.Transaction{
		Kind:        c.Kind,
		Card:        c.Card,
		Description: strings.TrimSpace(c.Description),
		Amount:      c.Amount,
		OccurredAt:  occurred,
		Category:    c.Category,
		Source:      core.SourceManual,
		Metadata:    c.Metadata,
	})
	if err != nil {
		return 0, fmt.Errorf("add transaction: %w", err)
	}
	return id, nil
}

// SafeAdd persists a candidate with deduplication. It returns the ID of
// the transaction carrying the candidate's fingerprint and whether this
// call created it.
//
// The sequence is check, insert, re-check: the upfront lookup is only a
// fast path for the common duplicate case, and the uniqueness constraint
// observed at insert time is the actual correctness guarantee. Two
// concurrent SafeAdd calls racing on the same fingerprint therefore leave
// exactly one row behind, with no locking on this side.
//
// SafeAdd is idempotent: a retry after a storage failure either inserts
// the row or finds the one a previous attempt left behind.
func (s *Service) SafeAdd(ctx context.Context, c core.Candidate, source core.ImportSource) (int64, bool, error) {
	if err := c.Validate(); err != nil {
		return 0, false, err
	}

	occurred := c.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	fingerprint := core.Fingerprint(occurred, c.Amount, c.Description, c.Card)

	existing, err := s.store.FindIDByFingerprint(ctx, fingerprint)
	if err == nil {
		slog.DebugContext(ctx, "Duplicate transaction skipped",
			"id", existing, "fingerprint", fingerprint)
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, false, fmt.Errorf("fingerprint lookup: %w", err)
	}

	id, err := s.store.InsertTransaction(ctx, core.Transaction{
		Kind:        c.Kind,
		Card:        c.Card,
		Description: strings.TrimSpace(c.Description),
		Amount:      c.Amount,
		OccurredAt:  occurred,
		Category:    c.Category,
		Fingerprint: fingerprint,
		Source:      source,
		Metadata:    c.Metadata,
	})
	if errors.Is(err, storage.ErrConflict) {
		// A concurrent writer inserted the same fingerprint between the
		// lookup and the insert. The constraint already guaranteed
		// uniqueness, so just resolve to the winner's row.
		winner, findErr := s.store.FindIDByFingerprint(ctx, fingerprint)
		if findErr != nil {
			return 0, false, fmt.Errorf("resolve conflicting fingerprint: %w", findErr)
		}
		slog.InfoContext(ctx, "Lost insert race, resolved to existing transaction",
			"id", winner, "fingerprint", fingerprint)
		return winner, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert transaction: %w", err)
	}
	return id, true, nil
}

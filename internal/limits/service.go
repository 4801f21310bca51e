// Package limits manages spending-limit policies and evaluates current
// spend against them over calendar period windows.
package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
	"budget/internal/storage"
)

// Store is the slice of persistence the evaluator needs. Implemented by
// *storage.SQLiteRepository.
type Store interface {
	FindLimit(ctx context.Context, category, source string, period core.Period) (core.SpendingLimit, error)
	UpsertLimit(ctx context.Context, l core.SpendingLimit) error
	ListLimits(ctx context.Context) ([]core.SpendingLimit, error)
	SumAmountCents(ctx context.Context, f storage.SpendFilter) (int64, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Set creates or replaces the limit for the policy's (category, source,
// period) scope.
func (s *Service) Set(ctx context.Context, l core.SpendingLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	return s.store.UpsertLimit(ctx, l)
}

func (s *Service) List(ctx context.Context) ([]core.SpendingLimit, error) {
	return s.store.ListLimits(ctx)
}

// Status reports current-period spend against a configured limit.
// Remaining is limit minus spent and goes negative once the limit is
// exceeded; it is deliberately not clamped at zero so callers can show by
// how much the budget was blown.
type Status struct {
	Limit      core.Money `json:"limit"`
	Spent      core.Money `json:"spent"`
	Remaining  core.Money `json:"remaining"`
	Exceeded   bool       `json:"exceeded"`
	Percentage float64    `json:"percentage"`
}

// Check evaluates the limit for the exact (category, source, period)
// scope against spend inside the current period window. It returns
// (nil, nil) when no limit is configured for that scope, which is
// distinct from a configured limit with zero spend.
func (s *Service) Check(ctx context.Context, category, source string, period core.Period) (*Status, error) {
	if !period.Valid() {
		return nil, core.ErrInvalidPeriod
	}

	limit, err := s.store.FindLimit(ctx, category, source, period)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find limit: %w", err)
	}

	// A stored limit can only be non-positive if the row was corrupted
	// outside this application; refusing to evaluate beats reporting a
	// bogus percentage.
	if limit.Limit.Cents <= 0 {
		return nil, fmt.Errorf("spending limit %d has non-positive amount %d: data integrity violation",
			limit.ID, limit.Limit.Cents)
	}

	window, err := core.PeriodWindow(period, s.now())
	if err != nil {
		return nil, err
	}

	spent, err := s.store.SumAmountCents(ctx, storage.SpendFilter{
		Window:   window,
		Category: category,
		Source:   source,
	})
	if err != nil {
		return nil, fmt.Errorf("sum period spend: %w", err)
	}

	status := &Status{
		Limit:      limit.Limit,
		Spent:      core.Money{Cents: spent},
		Remaining:  core.Money{Cents: limit.Limit.Cents - spent},
		Exceeded:   spent > limit.Limit.Cents,
		Percentage: float64(spent) / float64(limit.Limit.Cents) * 100,
	}

	if status.Exceeded {
		slog.WarnContext(ctx, "Spending limit exceeded",
			"category", category,
			"source", source,
			"period", period,
			"limit_cents", status.Limit.Cents,
			"spent_cents", status.Spent.Cents)
	}

	return status, nil
}

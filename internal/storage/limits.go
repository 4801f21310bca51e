package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

// UpsertLimit sets the amount for a (category, source, period) scope,
// replacing the existing limit for that scope in place.
func (r *SQLiteRepository) UpsertLimit(ctx context.Context, l core.SpendingLimit) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spending_limits (category, source, period, limit_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (category, source, period)
		DO UPDATE SET limit_cents = excluded.limit_cents`,
		l.Category, l.Source, string(l.Period), l.Limit.Cents)
	if err != nil {
		return fmt.Errorf("upsert spending limit: %w", err)
	}

	slog.InfoContext(ctx, "Spending limit set",
		"category", l.Category,
		"source", l.Source,
		"period", l.Period,
		"limit_cents", l.Limit.Cents)
	return nil
}

// FindLimit looks up the limit for the exact (category, source, period)
// triple, or ErrNotFound.
func (r *SQLiteRepository) FindLimit(ctx context.Context, category, source string, period core.Period) (core.SpendingLimit, error) {
	var (
		l           core.SpendingLimit
		periodValue string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, category, source, period, limit_cents
		FROM spending_limits
		WHERE category = ? AND source = ? AND period = ?`,
		category, source, string(period)).
		Scan(&l.ID, &l.Category, &l.Source, &periodValue, &l.Limit.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SpendingLimit{}, ErrNotFound
	}
	if err != nil {
		return core.SpendingLimit{}, fmt.Errorf("find spending limit: %w", err)
	}
	l.Period = core.Period(periodValue)
	return l, nil
}

func (r *SQLiteRepository) ListLimits(ctx context.Context) ([]core.SpendingLimit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, source, period, limit_cents
		FROM spending_limits
		ORDER BY period, category, source`)
	if err != nil {
		return nil, fmt.Errorf("list spending limits: %w", err)
	}
	defer rows.Close()

	var out []core.SpendingLimit
	for rows.Next() {
		var (
			l           core.SpendingLimit
			periodValue string
		)
		if err := rows.Scan(&l.ID, &l.Category, &l.Source, &periodValue, &l.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan spending limit: %w", err)
		}
		l.Period = core.Period(periodValue)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spending limits: %w", err)
	}
	return out, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"budget/internal/core"
)

// DailyTotal is the aggregate spend for one calendar day.
type DailyTotal struct {
	Day   string // YYYY-MM-DD
	Total core.Money
}

// DailySpending totals spend per day over the last N days, oldest first.
// Days with no transactions are omitted.
func (r *SQLiteRepository) DailySpending(ctx context.Context, now time.Time, days int) ([]DailyTotal, error) {
	since := now.AddDate(0, 0, -days)
	rows, err := r.db.QueryContext(ctx, `
		SELECT date(occurred_at / 1000, 'unixepoch', 'localtime') AS day,
		       SUM(amount_cents)
		FROM transactions
		WHERE occurred_at >= ?
		GROUP BY day
		ORDER BY day`, toMillis(since))
	if err != nil {
		return nil, fmt.Errorf("daily spending: %w", err)
	}
	defer rows.Close()

	var out []DailyTotal
	for rows.Next() {
		var (
			d     DailyTotal
			cents int64
		)
		if err := rows.Scan(&d.Day, &cents); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		d.Total = core.Money{Cents: cents}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily totals: %w", err)
	}
	return out, nil
}

// CategoryTotal is the aggregate spend for one category.
type CategoryTotal struct {
	Category string
	Total    core.Money
}

// CategorySpending breaks down a month's spend by category. Transactions
// without a category land in the "Uncategorized" bucket.
func (r *SQLiteRepository) CategorySpending(ctx context.Context, year int, month time.Month) ([]CategoryTotal, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(category, ''), 'Uncategorized') AS cat,
		       SUM(amount_cents)
		FROM transactions
		WHERE occurred_at >= ? AND occurred_at < ?
		GROUP BY cat
		ORDER BY SUM(amount_cents) DESC`, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("category spending: %w", err)
	}
	defer rows.Close()

	var out []CategoryTotal
	for rows.Next() {
		var (
			c     CategoryTotal
			cents int64
		)
		if err := rows.Scan(&c.Category, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		c.Total = core.Money{Cents: cents}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return out, nil
}

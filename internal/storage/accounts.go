package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budget/internal/core"
)

// AddCard registers a card name. It returns false when the card already
// exists.
func (r *SQLiteRepository) AddCard(ctx context.Context, name string) (bool, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO cards (name) VALUES (?)`, name)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add card: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) ListCards(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM cards ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// AddCategory registers a category. It returns false when the category
// already exists.
func (r *SQLiteRepository) AddCategory(ctx context.Context, name, description string) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?)`, name, description)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add category: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

// GetBalance returns the balance for a source ("cash" or a card name),
// zero when no balance has been recorded.
func (r *SQLiteRepository) GetBalance(ctx context.Context, source string) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents FROM balances WHERE type = ?`, source).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("get balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *SQLiteRepository) AllBalances(ctx context.Context) (map[string]core.Money, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, amount_cents FROM balances`)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.Money)
	for rows.Next() {
		var (
			source string
			cents  int64
		)
		if err := rows.Scan(&source, &cents); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out[source] = core.Money{Cents: cents}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SetBalance(ctx context.Context, source string, amount core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO balances (type, amount_cents) VALUES (?, ?)
		ON CONFLICT (type) DO UPDATE SET amount_cents = excluded.amount_cents`,
		source, amount.Cents)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budget/internal/core"
)

const transactionColumns = `id, kind, card, category, description, amount_cents,
	occurred_at, fingerprint, import_source, import_metadata, created_at`

// InsertTransaction persists a transaction and returns its new ID. An empty
// fingerprint is stored as NULL, which exempts the row from the uniqueness
// index. Inserting a fingerprint that already exists returns ErrConflict.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var metadata sql.NullString
	if len(t.Metadata) > 0 {
		raw, err := json.Marshal(t.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal import metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(kind, card, category, description, amount_cents, occurred_at,
			 fingerprint, import_source, import_metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Kind),
		nullable(t.Card),
		nullable(t.Category),
		t.Description,
		t.Amount.Cents,
		toMillis(t.OccurredAt),
		nullable(t.Fingerprint),
		string(t.Source),
		metadata,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert transaction: %w", ErrConflict)
		}
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"kind", t.Kind,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"import_source", t.Source)

	return id, nil
}

// FindIDByFingerprint returns the ID of the transaction carrying the given
// fingerprint, or ErrNotFound.
func (r *SQLiteRepository) FindIDByFingerprint(ctx context.Context, fingerprint string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM transactions WHERE fingerprint = ?`, fingerprint).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find transaction by fingerprint: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// TransactionPatch holds the fields of a partial update. Nil fields are
// left untouched. The fingerprint is deliberately never recomputed here:
// an edited row keeps the identity it was created with.
type TransactionPatch struct {
	Kind        *core.AccountKind
	Card        *string
	Description *string
	Amount      *core.Money
	Category    *string
}

// UpdateTransaction applies a patch to an existing transaction. It returns
// false when the transaction does not exist or the patch changes nothing.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, p TransactionPatch) (bool, error) {
	current, err := r.GetTransaction(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	updated := false

	if p.Kind != nil && strings.TrimSpace(string(*p.Kind)) != "" {
		if !p.Kind.Valid() {
			return false, core.ErrInvalidAccountKind
		}
		current.Kind = *p.Kind
		if current.Kind == core.Cash {
			current.Card = ""
		}
		updated = true
	}
	if p.Card != nil && current.Kind != core.Cash {
		current.Card = *p.Card
		updated = true
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) != "" {
		current.Description = strings.TrimSpace(*p.Description)
		updated = true
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return false, err
		}
		current.Amount = *p.Amount
		updated = true
	}
	if p.Category != nil {
		current.Category = *p.Category
		updated = true
	}

	if !updated {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE transactions
		SET kind = ?, card = ?, description = ?, amount_cents = ?, category = ?
		WHERE id = ?`,
		string(current.Kind),
		nullable(current.Card),
		current.Description,
		current.Amount.Cents,
		nullable(current.Category),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id)
	return true, nil
}

// DeleteTransaction removes a transaction. It returns false when the
// transaction does not exist.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return true, nil
}

// RecentTransactions returns the newest transactions first.
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// SearchFilter narrows a transaction search. All set fields combine with
// AND. Query matches description and card case-insensitively.
type SearchFilter struct {
	Query     string
	Category  string
	Card      string
	From      time.Time
	To        time.Time
	MinAmount *core.Money
	MaxAmount *core.Money
}

func (r *SQLiteRepository) SearchTransactions(ctx context.Context, f SearchFilter) ([]core.Transaction, error) {
	where := []string{"1 = 1"}
	args := []any{}

	if f.Query != "" {
		where = append(where, "(description LIKE ? OR card LIKE ?)")
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Card != "" {
		where = append(where, "card = ?")
		args = append(args, f.Card)
	}
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, toMillis(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, toMillis(f.To))
	}
	if f.MinAmount != nil {
		where = append(where, "amount_cents >= ?")
		args = append(args, f.MinAmount.Cents)
	}
	if f.MaxAmount != nil {
		where = append(where, "amount_cents <= ?")
		args = append(args, f.MaxAmount.Cents)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY occurred_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("search transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// SpendFilter selects the transactions whose amounts count toward a limit.
type SpendFilter struct {
	Window   core.Window
	Category string
	// Source is core.CashMarker for cash spend, a card name for card
	// spend, or empty for both.
	Source string
}

// SumAmountCents totals amount_cents over the transactions matching the
// filter. An empty window sums nothing.
func (r *SQLiteRepository) SumAmountCents(ctx context.Context, f SpendFilter) (int64, error) {
	where := []string{"occurred_at >= ?", "occurred_at <= ?"}
	args := []any{toMillis(f.Window.Start), toMillis(f.Window.End)}

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Source != "" {
		if f.Source == core.CashMarker {
			where = append(where, "kind = 'cash'")
		} else {
			where = append(where, "card = ?")
			args = append(args, f.Source)
		}
	}

	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents) FROM transactions
		WHERE `+strings.Join(where, " AND "), args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum amounts: %w", err)
	}
	return total.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                        core.Transaction
		kind, source             string
		card, category           sql.NullString
		fingerprint, metadata    sql.NullString
		occurredMs, createdAtMs  int64
	)
	err := row.Scan(&t.ID, &kind, &card, &category, &t.Description,
		&t.Amount.Cents, &occurredMs, &fingerprint, &source, &metadata, &createdAtMs)
	if err != nil {
		return core.Transaction{}, err
	}

	t.Kind = core.AccountKind(kind)
	t.Card = card.String
	t.Category = category.String
	t.Fingerprint = fingerprint.String
	t.Source = core.ImportSource(source)
	t.OccurredAt = fromMillis(occurredMs)
	t.CreatedAt = fromMillis(createdAtMs)

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &t.Metadata); err != nil {
			// Malformed metadata should not make the row unreadable.
			t.Metadata = nil
		}
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

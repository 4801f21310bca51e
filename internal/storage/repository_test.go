package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTxn(desc string, cents int64, occurred time.Time, fp string) core.Transaction {
	return core.Transaction{
		Kind:        core.Card,
		Card:        "Visa",
		Description: desc,
		Amount:      core.Money{Cents: cents},
		OccurredAt:  occurred,
		Category:    "Food",
		Fingerprint: fp,
		Source:      core.SourcePDF,
	}
}

func TestInsertAndGetTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	occurred := time.Date(2025, 2, 15, 10, 30, 0, 0, time.UTC)
	txn := testTxn("coffee", 550, occurred, "fp-1")
	txn.Metadata = map[string]string{"file": "statement.pdf"}

	id, err := repo.InsertTransaction(ctx, txn)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "coffee" || got.Amount.Cents != 550 || got.Fingerprint != "fp-1" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if !got.OccurredAt.Equal(occurred) {
		t.Fatalf("occurred_at = %v, want %v", got.OccurredAt, occurred)
	}
	if got.Metadata["file"] != "statement.pdf" {
		t.Fatalf("metadata lost: %+v", got.Metadata)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at should be set on insert")
	}
}

func TestInsertFingerprintConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	occurred := time.Now()

	if _, err := repo.InsertTransaction(ctx, testTxn("a", 100, occurred, "same-fp")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := repo.InsertTransaction(ctx, testTxn("b", 200, occurred, "same-fp"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestNullFingerprintsDoNotConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	occurred := time.Now()

	// Manual entries carry no fingerprint and are exempt from dedup.
	if _, err := repo.InsertTransaction(ctx, testTxn("manual 1", 100, occurred, "")); err != nil {
		t.Fatalf("first manual insert: %v", err)
	}
	if _, err := repo.InsertTransaction(ctx, testTxn("manual 2", 100, occurred, "")); err != nil {
		t.Fatalf("second manual insert: %v", err)
	}
}

func TestFindIDByFingerprint(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertTransaction(ctx, testTxn("a", 100, time.Now(), "fp-find"))
	if err != nil {
		t.Fatal(err)
	}

	found, err := repo.FindIDByFingerprint(ctx, "fp-find")
	if err != nil || found != id {
		t.Fatalf("expected id %d, got %d (err=%v)", id, found, err)
	}

	if _, err := repo.FindIDByFingerprint(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertTransaction(ctx, testTxn("lunch", 1200, time.Now(), "fp-upd"))
	if err != nil {
		t.Fatal(err)
	}

	cash := core.Cash
	updated, err := repo.UpdateTransaction(ctx, id, TransactionPatch{Kind: &cash})
	if err != nil || !updated {
		t.Fatalf("update: updated=%v err=%v", updated, err)
	}

	got, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != core.Cash {
		t.Fatalf("kind = %s", got.Kind)
	}
	if got.Card != "" {
		t.Fatal("switching to cash should clear the card")
	}
	// Edits never touch the fingerprint.
	if got.Fingerprint != "fp-upd" {
		t.Fatalf("fingerprint changed on edit: %q", got.Fingerprint)
	}

	bad := core.Money{Cents: -1}
	if _, err := repo.UpdateTransaction(ctx, id, TransactionPatch{Amount: &bad}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected validation error, got %v", err)
	}

	updated, err = repo.UpdateTransaction(ctx, 99999, TransactionPatch{Category: strPtr("x")})
	if err != nil || updated {
		t.Fatalf("missing row: updated=%v err=%v", updated, err)
	}

	updated, err = repo.UpdateTransaction(ctx, id, TransactionPatch{})
	if err != nil || updated {
		t.Fatalf("empty patch: updated=%v err=%v", updated, err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertTransaction(ctx, testTxn("a", 100, time.Now(), ""))
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := repo.DeleteTransaction(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.DeleteTransaction(ctx, id)
	if err != nil || deleted {
		t.Fatalf("second delete: deleted=%v err=%v", deleted, err)
	}
}

func TestRecentTransactionsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := repo.InsertTransaction(ctx, testTxn("t", 100, base.AddDate(0, 0, i), "")); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := repo.RecentTransactions(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3, got %d", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].OccurredAt.After(recent[i-1].OccurredAt) {
			t.Fatal("recent transactions must be newest first")
		}
	}
}

func TestSearchTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

	seed := []core.Transaction{
		{Kind: core.Card, Card: "Visa", Description: "coffee shop", Amount: core.Money{Cents: 550}, OccurredAt: day, Category: "Food"},
		{Kind: core.Card, Card: "Amex", Description: "groceries", Amount: core.Money{Cents: 4200}, OccurredAt: day.AddDate(0, 0, 1), Category: "Food"},
		{Kind: core.Cash, Description: "bus ticket", Amount: core.Money{Cents: 250}, OccurredAt: day.AddDate(0, 0, 2), Category: "Transport"},
	}
	for _, txn := range seed {
		if _, err := repo.InsertTransaction(ctx, txn); err != nil {
			t.Fatal(err)
		}
	}

	byQuery, err := repo.SearchTransactions(ctx, SearchFilter{Query: "coffee"})
	if err != nil || len(byQuery) != 1 {
		t.Fatalf("query search: %d results, err=%v", len(byQuery), err)
	}

	byCategory, err := repo.SearchTransactions(ctx, SearchFilter{Category: "Food"})
	if err != nil || len(byCategory) != 2 {
		t.Fatalf("category search: %d results, err=%v", len(byCategory), err)
	}

	minAmount := core.Money{Cents: 1000}
	byAmount, err := repo.SearchTransactions(ctx, SearchFilter{MinAmount: &minAmount})
	if err != nil || len(byAmount) != 1 || byAmount[0].Description != "groceries" {
		t.Fatalf("amount search: %+v err=%v", byAmount, err)
	}

	byDate, err := repo.SearchTransactions(ctx, SearchFilter{From: day.AddDate(0, 0, 1)})
	if err != nil || len(byDate) != 2 {
		t.Fatalf("date search: %d results, err=%v", len(byDate), err)
	}
}

func TestSumAmountCents(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

	seed := []core.Transaction{
		{Kind: core.Card, Card: "Visa", Description: "a", Amount: core.Money{Cents: 3000}, OccurredAt: day, Category: "Food"},
		{Kind: core.Card, Card: "Amex", Description: "b", Amount: core.Money{Cents: 4000}, OccurredAt: day, Category: "Food"},
		{Kind: core.Cash, Description: "c", Amount: core.Money{Cents: 1000}, OccurredAt: day, Category: "Food"},
		{Kind: core.Card, Card: "Visa", Description: "d", Amount: core.Money{Cents: 9999}, OccurredAt: day.AddDate(0, 1, 0), Category: "Food"},
	}
	for _, txn := range seed {
		if _, err := repo.InsertTransaction(ctx, txn); err != nil {
			t.Fatal(err)
		}
	}

	window, _ := core.PeriodWindow(core.Monthly, day)

	total, err := repo.SumAmountCents(ctx, SpendFilter{Window: window, Category: "Food"})
	if err != nil || total != 8000 {
		t.Fatalf("category sum = %d, err=%v", total, err)
	}

	cashOnly, err := repo.SumAmountCents(ctx, SpendFilter{Window: window, Source: core.CashMarker})
	if err != nil || cashOnly != 1000 {
		t.Fatalf("cash sum = %d, err=%v", cashOnly, err)
	}

	visaOnly, err := repo.SumAmountCents(ctx, SpendFilter{Window: window, Source: "Visa"})
	if err != nil || visaOnly != 3000 {
		t.Fatalf("visa sum = %d, err=%v", visaOnly, err)
	}

	empty, err := repo.SumAmountCents(ctx, SpendFilter{Window: window, Category: "Travel"})
	if err != nil || empty != 0 {
		t.Fatalf("empty sum = %d, err=%v", empty, err)
	}
}

func TestUpsertLimitReplacesInPlace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	limit := core.SpendingLimit{Category: "Food", Period: core.Monthly, Limit: core.Money{Cents: 10000}}
	if err := repo.UpsertLimit(ctx, limit); err != nil {
		t.Fatal(err)
	}
	limit.Limit = core.Money{Cents: 20000}
	if err := repo.UpsertLimit(ctx, limit); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindLimit(ctx, "Food", "", core.Monthly)
	if err != nil {
		t.Fatal(err)
	}
	if got.Limit.Cents != 20000 {
		t.Fatalf("limit = %d, want 20000", got.Limit.Cents)
	}

	all, err := repo.ListLimits(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one limit after upsert, got %d (err=%v)", len(all), err)
	}

	if _, err := repo.FindLimit(ctx, "Travel", "", core.Monthly); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCardsCategoriesBalances(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, err := repo.AddCard(ctx, "Visa")
	if err != nil || !added {
		t.Fatalf("add card: added=%v err=%v", added, err)
	}
	added, err = repo.AddCard(ctx, "Visa")
	if err != nil || added {
		t.Fatalf("duplicate card: added=%v err=%v", added, err)
	}

	added, err = repo.AddCategory(ctx, "Food", "eating out and groceries")
	if err != nil || !added {
		t.Fatalf("add category: added=%v err=%v", added, err)
	}

	cards, err := repo.ListCards(ctx)
	if err != nil || len(cards) != 1 || cards[0] != "Visa" {
		t.Fatalf("cards = %v, err=%v", cards, err)
	}

	if err := repo.SetBalance(ctx, "cash", core.Money{Cents: 5000}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetBalance(ctx, "cash", core.Money{Cents: 4500}); err != nil {
		t.Fatal(err)
	}
	bal, err := repo.GetBalance(ctx, "cash")
	if err != nil || bal.Cents != 4500 {
		t.Fatalf("balance = %d, err=%v", bal.Cents, err)
	}
	missing, err := repo.GetBalance(ctx, "Amex")
	if err != nil || missing.Cents != 0 {
		t.Fatalf("missing balance = %d, err=%v", missing.Cents, err)
	}
}

func strPtr(s string) *string { return &s }

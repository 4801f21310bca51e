package core

import (
	"errors"
	"testing"
	"time"
)

func TestCandidateValidate(t *testing.T) {
	good := Candidate{
		Kind:        Card,
		Card:        "Visa",
		Description: "coffee",
		Amount:      Money{Cents: 550},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cashGood := Candidate{Kind: Cash, Description: "market", Amount: Money{Cents: 100}}
	if err := cashGood.Validate(); err != nil {
		t.Fatalf("expected ok for cash without card, got %v", err)
	}

	cases := []struct {
		name string
		c    Candidate
		want error
	}{
		{"empty description", Candidate{Kind: Cash, Description: "   ", Amount: Money{Cents: 1}}, ErrEmptyDescription},
		{"zero amount", Candidate{Kind: Cash, Description: "a", Amount: Money{Cents: 0}}, ErrInvalidAmount},
		{"negative amount", Candidate{Kind: Cash, Description: "a", Amount: Money{Cents: -5}}, ErrInvalidAmount},
		{"bad kind", Candidate{Kind: "cheque", Description: "a", Amount: Money{Cents: 1}}, ErrInvalidAccountKind},
		{"card without name", Candidate{Kind: Card, Description: "a", Amount: Money{Cents: 1}}, ErrMissingCard},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation class error, got %v", err)
			}
		})
	}
}

func TestSpendingLimitValidate(t *testing.T) {
	good := SpendingLimit{Category: "Food", Period: Monthly, Limit: Money{Cents: 10000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (SpendingLimit{Period: Monthly, Limit: Money{Cents: 0}}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := (SpendingLimit{Period: "quarterly", Limit: Money{Cents: 1}}).Validate(); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected invalid period, got %v", err)
	}
}

func TestPeriodValid(t *testing.T) {
	for _, p := range []Period{Daily, Weekly, Monthly, Yearly} {
		if !p.Valid() {
			t.Fatalf("%s should be valid", p)
		}
	}
	if Period("hourly").Valid() {
		t.Fatal("hourly should not be valid")
	}
}

func TestCandidateZeroTimeMeansNow(t *testing.T) {
	var c Candidate
	if !c.OccurredAt.IsZero() {
		t.Fatal("zero candidate should have zero time")
	}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	fp := FingerprintCandidate(Candidate{Description: "x", Amount: Money{Cents: 100}}, now)
	if fp != Fingerprint(now, Money{Cents: 100}, "x", "") {
		t.Fatal("candidate without timestamp should fingerprint with the fallback time")
	}
}

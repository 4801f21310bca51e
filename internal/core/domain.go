package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Cash AccountKind = "cash"
	Card AccountKind = "card"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

const (
	SourceManual ImportSource = "manual"
	SourcePDF    ImportSource = "pdf"
	SourceImage  ImportSource = "image"
	SourceEmail  ImportSource = "email"
)

// CashMarker is the literal used in a limit scope's source field to mean
// "cash transactions" rather than a card name.
const CashMarker = "cash"

type (
	AccountKind  string
	Period       string
	ImportSource string

	Money struct {
		Cents int64
	}

	// Candidate is a transaction that has not been persisted yet. It is
	// produced by manual entry or by an import extractor and consumed by
	// the ingestion engine.
	Candidate struct {
		Kind        AccountKind
		Card        string // set iff Kind == Card
		Description string
		Amount      Money
		OccurredAt  time.Time // zero value means "now"
		Category    string
		Metadata    map[string]string
	}

	// Transaction is a persisted transaction. ID and Fingerprint are
	// assigned on insert and never change afterwards.
	Transaction struct {
		ID          int64
		Kind        AccountKind
		Card        string
		Description string
		Amount      Money
		OccurredAt  time.Time
		Category    string
		Fingerprint string // empty for manual entries
		Source      ImportSource
		Metadata    map[string]string
		CreatedAt   time.Time
	}

	// SpendingLimit caps spend for a (category, source, period) scope.
	// Empty Category or Source means the scope is not filtered on that
	// dimension. Source is either CashMarker or a card name.
	SpendingLimit struct {
		ID       int64
		Category string
		Source   string
		Period   Period
		Limit    Money
	}
)

// Validation sentinels. Each wraps ErrValidation so callers can classify
// with errors.Is(err, ErrValidation).
var (
	ErrValidation = errors.New("invalid input")

	ErrEmptyDescription   = fmt.Errorf("%w: description cannot be empty", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidAccountKind = fmt.Errorf("%w: account kind must be cash or card", ErrValidation)
	ErrMissingCard        = fmt.Errorf("%w: card name required for card transactions", ErrValidation)
	ErrInvalidPeriod      = fmt.Errorf("%w: period must be daily, weekly, monthly, or yearly", ErrValidation)
)

func (k AccountKind) Valid() bool {
	return k == Cash || k == Card
}

func (p Period) Valid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the candidate against the ingestion contract: non-empty
// description after trimming, positive amount, a known account kind, and a
// card name exactly when the kind is card.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Description) == "" {
		return ErrEmptyDescription
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if !c.Kind.Valid() {
		return ErrInvalidAccountKind
	}
	if c.Kind == Card && strings.TrimSpace(c.Card) == "" {
		return ErrMissingCard
	}
	return nil
}

func (l SpendingLimit) Validate() error {
	if err := l.Limit.Validate(); err != nil {
		return err
	}
	if !l.Period.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

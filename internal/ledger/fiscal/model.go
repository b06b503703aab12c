package fiscal

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger/accounts"
)

// Year represents a fiscal year window. Closing is one-directional: once
// IsClosed is set, no entry dated inside the range may change again.
type Year struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	IsClosed  bool       `json:"is_closed"`
	ClosedBy  *int64     `json:"closed_by,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Covers reports whether the date falls inside the year's range.
func (y Year) Covers(date time.Time) bool {
	return !date.Before(y.StartDate) && !date.After(y.EndDate)
}

// CreateInput captures validation rules for new fiscal years.
type CreateInput struct {
	Name      string    `json:"name" validate:"required,max=64"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	ActorID   int64     `json:"-"`
}

// Validate ensures the input is coherent.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("ledger: fiscal year name required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return errors.New("ledger: start and end date required")
	}
	if in.StartDate.After(in.EndDate) {
		return errors.New("ledger: start date cannot be after end date")
	}
	return nil
}

// AccountActivity aggregates one temporary account's posted movement inside
// the year being closed.
type AccountActivity struct {
	AccountID int64
	Code      string
	Type      accounts.AccountType
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Net returns the activity in the account's natural orientation.
func (a AccountActivity) Net() decimal.Decimal {
	if a.Type.DebitNormal() {
		return a.Debit.Sub(a.Credit)
	}
	return a.Credit.Sub(a.Debit)
}

// CloseResult summarises a completed year-end close.
type CloseResult struct {
	Year         Year
	NetIncome    decimal.Decimal
	ClosingEntry *int64
	EntryNumber  *int64
}

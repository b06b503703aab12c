package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	StatusDraft  EntryStatus = "DRAFT"
	StatusPosted EntryStatus = "POSTED"
	StatusVoid   EntryStatus = "VOID"
)

// EntrySource tags the collaborator that produced an entry.
type EntrySource string

const (
	SourceManual     EntrySource = "MANUAL"
	SourceSales      EntrySource = "SALES"
	SourceExpense    EntrySource = "EXPENSE"
	SourcePurchase   EntrySource = "PURCHASE"
	SourceRefund     EntrySource = "REFUND"
	SourcePayment    EntrySource = "PAYMENT"
	SourceAdjustment EntrySource = "ADJUSTMENT"
	SourceClosing    EntrySource = "CLOSING"
)

// Valid reports whether s is a known source tag.
func (s EntrySource) Valid() bool {
	switch s {
	case SourceManual, SourceSales, SourceExpense, SourcePurchase, SourceRefund, SourcePayment, SourceAdjustment, SourceClosing:
		return true
	}
	return false
}

// Entry captures a journal entry with its posting metadata. Once posted the
// header and lines never change; only status and void metadata may move.
type Entry struct {
	ID         int64       `json:"id"`
	Number     int64       `json:"number"`
	Date       time.Time   `json:"date"`
	Reference  string      `json:"reference,omitempty"`
	Memo       string      `json:"memo,omitempty"`
	Status     EntryStatus `json:"status"`
	Source     EntrySource `json:"source"`
	SourceRef  *uuid.UUID  `json:"source_ref,omitempty"`
	ReversesID *int64      `json:"reverses_id,omitempty"`
	CreatedBy  int64       `json:"created_by"`
	CreatedAt  time.Time   `json:"created_at"`
	PostedBy   *int64      `json:"posted_by,omitempty"`
	PostedAt   *time.Time  `json:"posted_at,omitempty"`
	VoidedBy   *int64      `json:"voided_by,omitempty"`
	VoidedAt   *time.Time  `json:"voided_at,omitempty"`
	VoidReason string      `json:"void_reason,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Lines      []Line      `json:"lines,omitempty"`
}

// Line stores a debit or credit amount against one account. Exactly one of
// Debit and Credit is nonzero.
type Line struct {
	ID        int64           `json:"id"`
	EntryID   int64           `json:"entry_id"`
	LineNo    int             `json:"line_no"`
	AccountID int64           `json:"account_id"`
	Memo      string          `json:"memo,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	CreatedAt time.Time       `json:"created_at"`
}

// FiscalYearRef is the slice of a fiscal year row needed inside posting
// transactions. Duplicated from the fiscal package so the journal tx
// repository can lock the year row without a package cycle.
type FiscalYearRef struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	IsClosed  bool
}

// Covers reports whether the date falls inside the year's range.
func (y FiscalYearRef) Covers(date time.Time) bool {
	return !date.Before(y.StartDate) && !date.After(y.EndDate)
}

package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger/shared"
)

// LineInput describes one draft line.
type LineInput struct {
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	Memo      string          `json:"memo,omitempty" validate:"max=256"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// DraftInput groups fields required to create a journal entry draft.
type DraftInput struct {
	Date      time.Time   `json:"date" validate:"required"`
	Reference string      `json:"reference,omitempty" validate:"max=64"`
	Memo      string      `json:"memo,omitempty" validate:"max=512"`
	Source    EntrySource `json:"source" validate:"required"`
	SourceRef *uuid.UUID  `json:"source_ref,omitempty"`
	CreatedBy int64       `json:"-"`

	// ReversesID is set internally when the draft compensates another entry.
	ReversesID *int64      `json:"-"`
	Lines      []LineInput `json:"lines" validate:"required,min=2,dive"`
}

// Validate enforces the balance invariant before anything is written: at
// least two lines, each line strictly one-sided and non-negative at two
// decimal places, debit total equal to credit total to the cent.
func (in DraftInput) Validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("ledger: entry date required")
	}
	if !in.Source.Valid() {
		return fmt.Errorf("ledger: unknown source %q", in.Source)
	}
	if len(in.Lines) < 2 {
		return fmt.Errorf("%w: got %d", shared.ErrEmptyEntry, len(in.Lines))
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d has a negative amount", idx+1)
		}
		if line.Debit.Round(2).Cmp(line.Debit) != 0 || line.Credit.Round(2).Cmp(line.Credit) != 0 {
			return fmt.Errorf("ledger: line %d amount has more than two decimal places", idx+1)
		}
		oneSided := line.Debit.IsPositive() != line.Credit.IsPositive()
		if !oneSided {
			return fmt.Errorf("ledger: line %d must carry exactly one of debit or credit", idx+1)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if debit.Cmp(credit) != 0 {
		return fmt.Errorf("%w: debits %s, credits %s", shared.ErrLinesImbalanced, debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// VoidInput wraps parameters for voiding.
type VoidInput struct {
	EntryID int64
	ActorID int64
	Reason  string
}

// Validate requires a non-empty reason.
func (in VoidInput) Validate() error {
	if in.EntryID == 0 {
		return fmt.Errorf("ledger: entry id required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return shared.ErrVoidReasonRequired
	}
	return nil
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID int64
	ActorID int64
	Memo    string
}

// ListFilter narrows entry listings.
type ListFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Status   EntryStatus
	Source   EntrySource
	Search   string
	Page     int
	PerPage  int
}

// mirrorLines swaps debit and credit of every line.
func mirrorLines(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID: line.AccountID,
			Memo:      line.Memo,
			Debit:     line.Credit,
			Credit:    line.Debit,
		})
	}
	return out
}

// storedLineInputs converts persisted lines back into inputs for
// re-validation at post time.
func storedLineInputs(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID: line.AccountID,
			Memo:      line.Memo,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	return out
}

func defaultReversalMemo(memo string, number int64) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of entry #%d", number)
}

package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger/shared"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func validDraft() DraftInput {
	return DraftInput{
		Date:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Source: SourceManual,
		Lines: []LineInput{
			{AccountID: 1, Debit: d("100.00")},
			{AccountID: 2, Credit: d("100.00")},
		},
	}
}

func TestDraftInputValidateAcceptsBalancedEntry(t *testing.T) {
	if err := validDraft().Validate(); err != nil {
		t.Fatalf("expected valid draft, got %v", err)
	}
}

func TestDraftInputValidateRejectsImbalance(t *testing.T) {
	in := validDraft()
	in.Lines[1].Credit = d("99.99")
	if err := in.Validate(); !errors.Is(err, shared.ErrLinesImbalanced) {
		t.Fatalf("expected ErrLinesImbalanced, got %v", err)
	}
}

func TestDraftInputValidateRejectsTooFewLines(t *testing.T) {
	in := validDraft()
	in.Lines = in.Lines[:1]
	if err := in.Validate(); !errors.Is(err, shared.ErrEmptyEntry) {
		t.Fatalf("expected ErrEmptyEntry, got %v", err)
	}
}

func TestDraftInputValidateRejectsBothSidesSet(t *testing.T) {
	in := validDraft()
	in.Lines[0].Credit = d("100.00")
	if err := in.Validate(); err == nil {
		t.Fatal("expected error for line carrying both debit and credit")
	}
}

func TestDraftInputValidateRejectsZeroLine(t *testing.T) {
	in := validDraft()
	in.Lines = append(in.Lines, LineInput{AccountID: 3})
	if err := in.Validate(); err == nil {
		t.Fatal("expected error for line with neither side set")
	}
}

func TestDraftInputValidateRejectsNegativeAmount(t *testing.T) {
	in := validDraft()
	in.Lines[0].Debit = d("-100.00")
	if err := in.Validate(); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestDraftInputValidateRejectsSubCentPrecision(t *testing.T) {
	in := validDraft()
	in.Lines[0].Debit = d("100.001")
	in.Lines[1].Credit = d("100.001")
	if err := in.Validate(); err == nil {
		t.Fatal("expected error for sub-cent precision")
	}
}

func TestDraftInputValidateRejectsUnknownSource(t *testing.T) {
	in := validDraft()
	in.Source = "WAREHOUSE"
	if err := in.Validate(); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestVoidInputRequiresReason(t *testing.T) {
	in := VoidInput{EntryID: 1, ActorID: 2, Reason: "  "}
	if err := in.Validate(); !errors.Is(err, shared.ErrVoidReasonRequired) {
		t.Fatalf("expected ErrVoidReasonRequired, got %v", err)
	}
}

func TestMirrorLinesSwapsSides(t *testing.T) {
	lines := []Line{
		{AccountID: 1, Debit: d("75.50"), Credit: decimal.Zero},
		{AccountID: 2, Debit: decimal.Zero, Credit: d("75.50")},
	}
	mirrored := mirrorLines(lines)
	if !mirrored[0].Credit.Equal(d("75.50")) || !mirrored[0].Debit.IsZero() {
		t.Fatalf("expected debit line mirrored to credit, got %+v", mirrored[0])
	}
	if !mirrored[1].Debit.Equal(d("75.50")) || !mirrored[1].Credit.IsZero() {
		t.Fatalf("expected credit line mirrored to debit, got %+v", mirrored[1])
	}
}

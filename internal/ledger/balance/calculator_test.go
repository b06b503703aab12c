package balance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger/accounts"
	"github.com/tillbook/tillbook/internal/ledger/shared"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubStore struct {
	metas []AccountMeta
	sums  map[int64]Sums
}

func (s *stubStore) ListAccounts(ctx context.Context) ([]AccountMeta, error) {
	return s.metas, nil
}

func (s *stubStore) SumsByAccount(ctx context.Context, asOf *time.Time) (map[int64]Sums, error) {
	return s.sums, nil
}

func TestNormalizeByAccountType(t *testing.T) {
	sums := Sums{Debit: d("150.00"), Credit: d("50.00")}
	if got := Normalize(accounts.TypeAsset, d("10.00"), sums); !got.Equal(d("110.00")) {
		t.Fatalf("asset: got %s", got)
	}
	if got := Normalize(accounts.TypeIncome, decimal.Zero, sums); !got.Equal(d("-100.00")) {
		t.Fatalf("income: got %s", got)
	}
	if got := Normalize(accounts.TypeLiability, d("20.00"), sums); !got.Equal(d("-80.00")) {
		t.Fatalf("liability: got %s", got)
	}
}

func TestBalanceOfSumsSubtreeOnce(t *testing.T) {
	parent := int64(1)
	store := &stubStore{
		metas: []AccountMeta{
			{ID: 1, Code: "1000", Type: accounts.TypeAsset, IsActive: true},
			{ID: 2, Code: "1010", Type: accounts.TypeAsset, ParentID: &parent, IsActive: true},
			{ID: 3, Code: "1020", Type: accounts.TypeAsset, ParentID: &parent, IsActive: true},
		},
		sums: map[int64]Sums{
			// Lines posted directly to the parent count once, on its own term.
			1: {Debit: d("5.00"), Credit: decimal.Zero},
			2: {Debit: d("100.00"), Credit: d("30.00")},
			3: {Debit: d("20.00"), Credit: decimal.Zero},
		},
	}
	calc := NewCalculator(store)
	got, err := calc.BalanceOf(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !got.Equal(d("95.00")) {
		t.Fatalf("expected 95.00, got %s", got)
	}
}

func TestBalanceOfUnknownAccount(t *testing.T) {
	calc := NewCalculator(&stubStore{})
	if _, err := calc.BalanceOf(context.Background(), 42, nil); !errors.Is(err, shared.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestTrialBalanceFootsAndGroups(t *testing.T) {
	store := &stubStore{
		metas: []AccountMeta{
			{ID: 1, Code: "1000", Name: "Cash", Type: accounts.TypeAsset, IsActive: true},
			{ID: 2, Code: "4000", Name: "Sales", Type: accounts.TypeIncome, IsActive: true},
			{ID: 3, Code: "4010", Name: "Other Income", Type: accounts.TypeIncome, IsActive: true},
			{ID: 4, Code: "9999", Name: "Old", Type: accounts.TypeExpense, IsActive: false},
		},
		sums: map[int64]Sums{
			1: {Debit: d("250.00"), Credit: decimal.Zero},
			2: {Debit: decimal.Zero, Credit: d("200.00")},
			3: {Debit: decimal.Zero, Credit: d("50.00")},
			4: {Debit: d("10.00"), Credit: d("10.00")},
		},
	}
	calc := NewCalculator(store)
	tb, err := calc.TrialBalance(context.Background(), nil)
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	if !tb.Balanced() {
		t.Fatalf("expected balanced, debit=%s credit=%s", tb.TotalDebit, tb.TotalCredit)
	}
	if !tb.TotalDebit.Equal(d("250.00")) {
		t.Fatalf("inactive accounts must be excluded, got %s", tb.TotalDebit)
	}
	if len(tb.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tb.Groups))
	}
	if tb.Groups[1].Key != "40" || len(tb.Groups[1].Rows) != 2 {
		t.Fatalf("expected income accounts grouped under 40, got %+v", tb.Groups[1])
	}
	if !tb.Groups[1].Rows[0].Balance.Equal(d("200.00")) {
		t.Fatalf("expected normalized income balance 200.00, got %s", tb.Groups[1].Rows[0].Balance)
	}
}

func TestTrialBalanceGroupsByCodeFamily(t *testing.T) {
	store := &stubStore{
		metas: []AccountMeta{
			{ID: 1, Code: "10.100", Name: "Till Cash", Type: accounts.TypeAsset, IsActive: true},
			{ID: 2, Code: "10.200", Name: "Safe Cash", Type: accounts.TypeAsset, IsActive: true},
			{ID: 3, Code: "4000", Name: "Sales", Type: accounts.TypeIncome, IsActive: true},
			{ID: 4, Code: "4100", Name: "Other Income", Type: accounts.TypeIncome, IsActive: true},
		},
		sums: map[int64]Sums{
			1: {Debit: d("60.00"), Credit: decimal.Zero},
			2: {Debit: d("40.00"), Credit: decimal.Zero},
			3: {Debit: decimal.Zero, Credit: d("70.00")},
			4: {Debit: decimal.Zero, Credit: d("30.00")},
		},
	}
	tb, err := NewCalculator(store).TrialBalance(context.Background(), nil)
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	// Dotted codes group on the segment before the dot; plain codes on the
	// two-digit prefix, so 4000 and 4100 stay apart.
	if len(tb.Groups) != 3 {
		t.Fatalf("expected groups 10, 40, 41, got %+v", tb.Groups)
	}
	if tb.Groups[0].Key != "10" || len(tb.Groups[0].Rows) != 2 {
		t.Fatalf("expected dotted codes under one group, got %+v", tb.Groups[0])
	}
	if tb.Groups[1].Key != "40" || tb.Groups[2].Key != "41" {
		t.Fatalf("unexpected group keys: %+v", tb.Groups)
	}
}

func TestTrialBalanceDetectsImbalance(t *testing.T) {
	store := &stubStore{
		metas: []AccountMeta{
			{ID: 1, Code: "1000", Type: accounts.TypeAsset, IsActive: true},
		},
		sums: map[int64]Sums{
			1: {Debit: d("100.00"), Credit: d("40.00")},
		},
	}
	tb, err := NewCalculator(store).TrialBalance(context.Background(), nil)
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	if tb.Balanced() {
		t.Fatal("expected imbalance to be reported")
	}
}

// Package balance derives account balances and trial balances from posted
// journal lines. Nothing here is cached authoritatively: every figure is
// recomputed from source lines so void and reversal history is always
// reflected.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger/accounts"
	"github.com/tillbook/tillbook/internal/ledger/shared"
)

// Sums carries the raw debit and credit totals for one account.
type Sums struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// AccountMeta is the slice of an account row the calculator needs.
type AccountMeta struct {
	ID             int64
	Code           string
	Name           string
	Type           accounts.AccountType
	ParentID       *int64
	OpeningBalance decimal.Decimal
	IsActive       bool
}

// Store reads accounts and posted-line sums. Lines on draft or void entries
// never contribute.
type Store interface {
	ListAccounts(ctx context.Context) ([]AccountMeta, error)
	// SumsByAccount aggregates posted lines per account up to asOf inclusive
	// (all history when asOf is nil).
	SumsByAccount(ctx context.Context, asOf *time.Time) (map[int64]Sums, error)
}

// Calculator computes normalized balances over the ledger store.
type Calculator struct {
	store Store
}

// NewCalculator constructs a Calculator.
func NewCalculator(store Store) *Calculator {
	return &Calculator{store: store}
}

// Normalize converts raw debit/credit sums into the account's natural
// orientation: increases are positive for every type. Assets and expenses
// grow with debits; liabilities, equity, and income grow with credits.
func Normalize(t accounts.AccountType, opening decimal.Decimal, s Sums) decimal.Decimal {
	if t.DebitNormal() {
		return opening.Add(s.Debit).Sub(s.Credit)
	}
	return opening.Add(s.Credit).Sub(s.Debit)
}

// BalanceOf returns the subtree balance of an account as of the given date:
// its own opening balance and posted lines plus the balances of all
// descendants. A line posted directly to a parent that also has children is
// counted exactly once, on the parent's own term.
func (c *Calculator) BalanceOf(ctx context.Context, accountID int64, asOf *time.Time) (decimal.Decimal, error) {
	metas, err := c.store.ListAccounts(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	byID := make(map[int64]AccountMeta, len(metas))
	children := make(map[int64][]int64, len(metas))
	for _, meta := range metas {
		byID[meta.ID] = meta
		if meta.ParentID != nil {
			children[*meta.ParentID] = append(children[*meta.ParentID], meta.ID)
		}
	}
	if _, ok := byID[accountID]; !ok {
		return decimal.Zero, fmt.Errorf("%w: id %d", shared.ErrAccountNotFound, accountID)
	}
	sums, err := c.store.SumsByAccount(ctx, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	stack := []int64{accountID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		meta := byID[id]
		total = total.Add(Normalize(meta.Type, meta.OpeningBalance, sums[id]))
		stack = append(stack, children[id]...)
	}
	return total, nil
}

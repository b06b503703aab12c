package balance

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tillbook/tillbook/internal/ledger/accounts"
)

// TrialBalanceRow is one account in the trial balance listing.
type TrialBalanceRow struct {
	AccountID int64                `json:"account_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      accounts.AccountType `json:"type"`
	Opening   decimal.Decimal      `json:"opening"`
	Debit     decimal.Decimal      `json:"debit"`
	Credit    decimal.Decimal      `json:"credit"`
	Balance   decimal.Decimal      `json:"balance"`
}

// TrialBalanceGroup aggregates rows sharing a code prefix for presentation.
type TrialBalanceGroup struct {
	Key    string            `json:"key"`
	Rows   []TrialBalanceRow `json:"rows"`
	Debit  decimal.Decimal   `json:"debit"`
	Credit decimal.Decimal   `json:"credit"`
}

// TrialBalance is the full listing of account balances at a point in time.
// TotalDebit equals TotalCredit whenever the books are consistent.
type TrialBalance struct {
	AsOf        *time.Time          `json:"as_of,omitempty"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
}

// Balanced reports whether total debits equal total credits.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit.Cmp(tb.TotalCredit) == 0
}

// groupKey buckets an account under its code family: the segment before the
// first dot for dotted charts, otherwise the two-digit class prefix.
func groupKey(code string) string {
	if i := strings.IndexByte(code, '.'); i > 0 {
		return code[:i]
	}
	if len(code) >= 2 {
		return code[:2]
	}
	return code
}

// TrialBalance lists every active account with its raw debit/credit totals
// and normalized balance, grouped by code prefix.
func (c *Calculator) TrialBalance(ctx context.Context, asOf *time.Time) (TrialBalance, error) {
	var (
		metas []AccountMeta
		sums  map[int64]Sums
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metas, err = c.store.ListAccounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sums, err = c.store.SumsByAccount(gctx, asOf)
		return err
	})
	if err := g.Wait(); err != nil {
		return TrialBalance{}, err
	}

	groups := make(map[string]*TrialBalanceGroup)
	var keys []string
	result := TrialBalance{AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, meta := range metas {
		if !meta.IsActive {
			continue
		}
		s := sums[meta.ID]
		row := TrialBalanceRow{
			AccountID: meta.ID,
			Code:      meta.Code,
			Name:      meta.Name,
			Type:      meta.Type,
			Opening:   meta.OpeningBalance,
			Debit:     s.Debit,
			Credit:    s.Credit,
			Balance:   Normalize(meta.Type, meta.OpeningBalance, s),
		}
		key := groupKey(meta.Code)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Rows = append(grp.Rows, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		result.TotalDebit = result.TotalDebit.Add(row.Debit)
		result.TotalCredit = result.TotalCredit.Add(row.Credit)
	}

	sort.Strings(keys)
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool {
			return grp.Rows[i].Code < grp.Rows[j].Code
		})
		result.Groups = append(result.Groups, *grp)
	}
	return result, nil
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger/balance"
)

// IntegrityChecker verifies the two ledger invariants that must hold at all
// times: every posted entry balances on its own, and the trial balance foots.
// A failure here means a bug or manual data tampering, never normal operation.
type IntegrityChecker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewIntegrityChecker constructs an IntegrityChecker.
func NewIntegrityChecker(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityChecker {
	return &IntegrityChecker{pool: pool, logger: logger}
}

// HandleTask processes TaskLedgerIntegrity tasks.
func (c *IntegrityChecker) HandleTask(ctx context.Context, _ *asynq.Task) error {
	return c.Run(ctx)
}

// Run executes the scan and returns an error when any invariant is violated.
func (c *IntegrityChecker) Run(ctx context.Context) error {
	unbalanced, err := c.unbalancedEntries(ctx)
	if err != nil {
		return err
	}
	for _, e := range unbalanced {
		c.logger.Error("unbalanced posted entry",
			slog.Int64("entry_id", e.ID),
			slog.Int64("number", e.Number),
			slog.String("debit", e.Debit.StringFixed(2)),
			slog.String("credit", e.Credit.StringFixed(2)))
	}

	calc := balance.NewCalculator(balance.NewStore(c.pool))
	tb, err := calc.TrialBalance(ctx, nil)
	if err != nil {
		return err
	}
	if !tb.Balanced() {
		c.logger.Error("trial balance out of balance",
			slog.String("total_debit", tb.TotalDebit.StringFixed(2)),
			slog.String("total_credit", tb.TotalCredit.StringFixed(2)))
	}

	if len(unbalanced) > 0 || !tb.Balanced() {
		return fmt.Errorf("ledger integrity scan failed: %d unbalanced entries, trial balance balanced=%t", len(unbalanced), tb.Balanced())
	}
	c.logger.Info("ledger integrity scan clean",
		slog.String("total_debit", tb.TotalDebit.StringFixed(2)),
		slog.String("total_credit", tb.TotalCredit.StringFixed(2)))
	return nil
}

type unbalancedEntry struct {
	ID     int64
	Number int64
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (c *IntegrityChecker) unbalancedEntries(ctx context.Context) ([]unbalancedEntry, error) {
	rows, err := c.pool.Query(ctx, `SELECT e.id, e.number, COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_entries e
JOIN journal_lines l ON l.entry_id = e.id
WHERE e.status = 'POSTED'
GROUP BY e.id, e.number
HAVING COALESCE(SUM(l.debit),0) <> COALESCE(SUM(l.credit),0)
ORDER BY e.number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []unbalancedEntry
	for rows.Next() {
		var e unbalancedEntry
		if err := rows.Scan(&e.ID, &e.Number, &e.Debit, &e.Credit); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillbook/tillbook/internal/ledger/accounts"
	"github.com/tillbook/tillbook/internal/ledger/shared"
	"github.com/tillbook/tillbook/internal/platform/db"
)

// Repository persists fiscal year state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("fiscal: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

const yearColumns = `id, name, start_date, end_date, is_closed, closed_by, closed_at, created_at, updated_at`

func scanYear(row pgx.Row) (Year, error) {
	var y Year
	err := row.Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate, &y.IsClosed, &y.ClosedBy, &y.ClosedAt, &y.CreatedAt, &y.UpdatedAt)
	return y, err
}

// List returns all fiscal years, newest range first.
func (r *Repository) List(ctx context.Context) ([]Year, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+yearColumns+` FROM fiscal_years ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []Year
	for rows.Next() {
		y, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// GetByID fetches one fiscal year.
func (r *Repository) GetByID(ctx context.Context, id int64) (Year, error) {
	y, err := scanYear(r.pool.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Year{}, shared.ErrYearNotFound
		}
		return Year{}, err
	}
	return y, nil
}

// FindCurrent returns the open fiscal year covering the given date.
func (r *Repository) FindCurrent(ctx context.Context, today time.Time) (Year, error) {
	y, err := scanYear(r.pool.QueryRow(ctx, `SELECT `+yearColumns+`
FROM fiscal_years WHERE NOT is_closed AND $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, today))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Year{}, shared.ErrNoCurrentYear
		}
		return Year{}, err
	}
	return y, nil
}

// RangeConflict reports whether [start, end] intersects an existing year.
func (r *Repository) RangeConflict(ctx context.Context, start, end time.Time) (bool, error) {
	var conflict bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM fiscal_years WHERE start_date <= $2 AND end_date >= $1)`, start, end).Scan(&conflict)
	return conflict, err
}

// Insert creates a new fiscal year row.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, in CreateInput) (Year, error) {
	y, err := scanYear(tx.QueryRow(ctx, `INSERT INTO fiscal_years (name, start_date, end_date, is_closed)
VALUES ($1,$2,$3,FALSE) RETURNING `+yearColumns, in.Name, in.StartDate, in.EndDate))
	if err != nil {
		return Year{}, err
	}
	return y, nil
}

// GetForUpdate locks the fiscal year row for the duration of the close. The
// posting path takes a share lock on the covering year, so holding this
// exclusive lock also keeps new entries out of the year mid-close.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Year, error) {
	y, err := scanYear(tx.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Year{}, shared.ErrYearNotFound
		}
		return Year{}, err
	}
	return y, nil
}

// MarkClosed flips the one-way closed flag.
func (r *Repository) MarkClosed(ctx context.Context, tx pgx.Tx, id, actorID int64, at time.Time) error {
	cmd, err := tx.Exec(ctx, `UPDATE fiscal_years SET is_closed=TRUE, closed_by=$2, closed_at=$3, updated_at=NOW()
WHERE id=$1 AND NOT is_closed`, id, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyClosed
	}
	return nil
}

// FindRetainedEarnings locates the active equity account configured to
// receive the closing transfer.
func (r *Repository) FindRetainedEarnings(ctx context.Context, tx pgx.Tx) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM accounts
WHERE type=$1 AND subtype=$2 AND is_active ORDER BY code LIMIT 1`,
		accounts.TypeEquity, accounts.SubtypeRetainedEarnings).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrRetainedEarningsMissing
		}
		return 0, err
	}
	return id, nil
}

// TemporaryAccountActivity sums posted lines per income and expense account
// inside the date range, descendants included by virtue of each account
// carrying its own lines.
func (r *Repository) TemporaryAccountActivity(ctx context.Context, tx pgx.Tx, start, end time.Time) ([]AccountActivity, error) {
	rows, err := tx.Query(ctx, `SELECT a.id, a.code, a.type, COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM accounts a
JOIN journal_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.entry_id
WHERE a.type IN ($1,$2) AND e.status='POSTED' AND e.entry_date BETWEEN $3 AND $4
GROUP BY a.id, a.code, a.type
ORDER BY a.code`, accounts.TypeIncome, accounts.TypeExpense, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var activity []AccountActivity
	for rows.Next() {
		var a AccountActivity
		if err := rows.Scan(&a.AccountID, &a.Code, &a.Type, &a.Debit, &a.Credit); err != nil {
			return nil, err
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}

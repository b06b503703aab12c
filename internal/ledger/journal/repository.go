package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillbook/tillbook/internal/ledger/shared"
	"github.com/tillbook/tillbook/internal/platform/db"
	internalShared "github.com/tillbook/tillbook/internal/shared"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	GetEntry(ctx context.Context, id int64) (Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]Entry, internalShared.Pagination, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. All
// state-changing journal work happens behind this boundary so an error at any
// step rolls the whole operation back.
type TxRepository interface {
	InsertEntry(ctx context.Context, in DraftInput) (Entry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) error
	GetEntryForUpdate(ctx context.Context, id int64) (Entry, error)
	ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) error
	UpdateDraftHeader(ctx context.Context, id int64, in DraftInput) error
	MarkPosted(ctx context.Context, id, actorID int64, at time.Time) error
	MarkVoid(ctx context.Context, id, actorID int64, reason string, at time.Time) error
	DeleteDraft(ctx context.Context, id int64) error
	InactiveOrMissingAccounts(ctx context.Context, accountIDs []int64) ([]int64, error)

	// GetFiscalYearForDate locks the covering fiscal year row in share mode
	// so a concurrent close cannot slip between the check and the write.
	// Duplicated from the fiscal repository; needed here for transaction
	// context.
	GetFiscalYearForDate(ctx context.Context, date time.Time) (FiscalYearRef, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, number, entry_date, reference, memo, status, source, source_ref, reverses_entry_id, created_by, created_at, posted_by, posted_at, voided_by, voided_at, void_reason, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var reason *string
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.Reference, &e.Memo, &e.Status, &e.Source, &e.SourceRef, &e.ReversesID,
		&e.CreatedBy, &e.CreatedAt, &e.PostedBy, &e.PostedAt, &e.VoidedBy, &e.VoidedAt, &reason, &e.UpdatedAt)
	if err != nil {
		return Entry{}, err
	}
	if reason != nil {
		e.VoidReason = *reason
	}
	return e, nil
}

func (r *repository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.ErrEntryNotFound
		}
		return Entry{}, err
	}
	entry.Lines, err = loadLines(ctx, r.db, id)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (r *repository) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, internalShared.Pagination, error) {
	where := ` WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.DateFrom != nil {
		where += ` AND entry_date >= ` + arg(*filter.DateFrom)
	}
	if filter.DateTo != nil {
		where += ` AND entry_date <= ` + arg(*filter.DateTo)
	}
	if filter.Status != "" {
		where += ` AND status = ` + arg(filter.Status)
	}
	if filter.Source != "" {
		where += ` AND source = ` + arg(filter.Source)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where += ` AND (memo ILIKE ` + arg(pattern) + ` OR reference ILIKE ` + arg(pattern) + `)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries`+where, args...).Scan(&total); err != nil {
		return nil, internalShared.Pagination{}, err
	}
	page := internalShared.NewPagination(filter.Page, filter.PerPage, total)

	query := `SELECT ` + entryColumns + ` FROM journal_entries` + where +
		` ORDER BY number DESC LIMIT ` + arg(page.PerPage) + ` OFFSET ` + arg(page.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, internalShared.Pagination{}, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, internalShared.Pagination{}, err
	}
	for i := range entries {
		entries[i].Lines, err = loadLines(ctx, r.db, entries[i].ID)
		if err != nil {
			return nil, internalShared.Pagination{}, err
		}
	}
	return entries, page, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func loadLines(ctx context.Context, q querier, entryID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, line_no, account_id, memo, debit, credit, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY line_no ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNo, &line.AccountID, &line.Memo, &line.Debit, &line.Credit, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction. Exported so the fiscal close can
// drive the posting path inside its own transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) InsertEntry(ctx context.Context, in DraftInput) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (number, entry_date, reference, memo, status, source, source_ref, reverses_entry_id, created_by)
VALUES (nextval('journal_entry_number_seq'),$1,$2,$3,'DRAFT',$4,$5,$6,$7)
RETURNING id, number, created_at, updated_at`, in.Date, in.Reference, in.Memo, in.Source, in.SourceRef, in.ReversesID, in.CreatedBy)
	entry := Entry{
		Date:       in.Date,
		Reference:  in.Reference,
		Memo:       in.Memo,
		Status:     StatusDraft,
		Source:     in.Source,
		SourceRef:  in.SourceRef,
		ReversesID: in.ReversesID,
		CreatedBy:  in.CreatedBy,
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_entries_source_ref" {
			return Entry{}, shared.ErrSourceAlreadyLinked
		}
		return Entry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) error {
	for idx, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, line_no, account_id, memo, debit, credit)
VALUES ($1,$2,$3,$4,$5,$6)`, entryID, idx+1, line.AccountID, line.Memo, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.ErrEntryNotFound
		}
		return Entry{}, err
	}
	entry.Lines, err = loadLines(ctx, r.tx, id)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	return r.InsertLines(ctx, entryID, lines)
}

func (r *txRepository) UpdateDraftHeader(ctx context.Context, id int64, in DraftInput) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET entry_date=$2, reference=$3, memo=$4, source=$5, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, id, in.Date, in.Reference, in.Memo, in.Source)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStatus
	}
	return nil
}

func (r *txRepository) MarkPosted(ctx context.Context, id, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='POSTED', posted_by=$2, posted_at=$3, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, id, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStatus
	}
	return nil
}

func (r *txRepository) MarkVoid(ctx context.Context, id, actorID int64, reason string, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='VOID', voided_by=$2, voided_at=$3, void_reason=$4, updated_at=NOW()
WHERE id=$1 AND status='POSTED'`, id, actorID, at, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStatus
	}
	return nil
}

func (r *txRepository) DeleteDraft(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1 AND status='DRAFT'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidStatus
	}
	return nil
}

func (r *txRepository) InactiveOrMissingAccounts(ctx context.Context, accountIDs []int64) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT id FROM accounts WHERE id = ANY($1) AND is_active`, accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	valid := make(map[int64]bool, len(accountIDs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		valid[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var bad []int64
	for _, id := range accountIDs {
		if !valid[id] {
			bad = append(bad, id)
		}
	}
	return bad, nil
}

func (r *txRepository) GetFiscalYearForDate(ctx context.Context, date time.Time) (FiscalYearRef, error) {
	var y FiscalYearRef
	err := r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, is_closed
FROM fiscal_years WHERE $1 BETWEEN start_date AND end_date FOR SHARE`, date).
		Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate, &y.IsClosed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYearRef{}, shared.ErrNoFiscalYear
		}
		return FiscalYearRef{}, err
	}
	return y, nil
}

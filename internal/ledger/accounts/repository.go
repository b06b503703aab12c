package accounts

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillbook/tillbook/internal/ledger/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	Insert(ctx context.Context, in CreateInput) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	List(ctx context.Context, filter ListFilter) ([]Account, error)
	HasActiveChildren(ctx context.Context, id int64) (bool, error)
	HasJournalLines(ctx context.Context, id int64) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, name_i18n, type, subtype, parent_id, opening_balance, is_system, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var i18n []byte
	err := row.Scan(&a.ID, &a.Code, &a.Name, &i18n, &a.Type, &a.Subtype, &a.ParentID, &a.OpeningBalance, &a.IsSystem, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	if len(i18n) > 0 {
		_ = json.Unmarshal(i18n, &a.NameI18n)
	}
	return a, nil
}

func (r *repository) Insert(ctx context.Context, in CreateInput) (Account, error) {
	i18n, err := json.Marshal(in.NameI18n)
	if err != nil {
		return Account{}, err
	}
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (code, name, name_i18n, type, subtype, parent_id, opening_balance, is_system, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE)
RETURNING `+accountColumns, in.Code, in.Name, i18n, in.Type, in.Subtype, in.ParentID, in.OpeningBalance, in.IsSystem)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_code" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	args := []any{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND type=$1`
	}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY code`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, account)
	}
	return list, rows.Err()
}

func (r *repository) HasActiveChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE parent_id=$1 AND is_active)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) HasJournalLines(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

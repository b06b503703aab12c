package balance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type store struct {
	q *pgxpool.Pool
}

// NewStore builds a Store over a connection pool.
func NewStore(db *pgxpool.Pool) Store {
	return &store{q: db}
}

func (s *store) ListAccounts(ctx context.Context) ([]AccountMeta, error) {
	rows, err := s.q.Query(ctx, `SELECT id, code, name, type, parent_id, opening_balance, is_active FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var metas []AccountMeta
	for rows.Next() {
		var m AccountMeta
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.Type, &m.ParentID, &m.OpeningBalance, &m.IsActive); err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

func (s *store) SumsByAccount(ctx context.Context, asOf *time.Time) (map[int64]Sums, error) {
	query := `SELECT l.account_id, COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.status = 'POSTED'`
	args := []any{}
	if asOf != nil {
		args = append(args, *asOf)
		query += ` AND e.entry_date <= $1`
	}
	query += ` GROUP BY l.account_id`
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := make(map[int64]Sums)
	for rows.Next() {
		var id int64
		var s Sums
		if err := rows.Scan(&id, &s.Debit, &s.Credit); err != nil {
			return nil, err
		}
		sums[id] = s
	}
	return sums, rows.Err()
}

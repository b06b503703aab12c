package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger/accounts"
	"github.com/tillbook/tillbook/internal/ledger/journal"
	"github.com/tillbook/tillbook/internal/ledger/shared"
	internalShared "github.com/tillbook/tillbook/internal/shared"
)

// AuditPort records fiscal events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// MetricsPort counts fiscal-period transitions.
type MetricsPort interface {
	YearClosed()
}

// Poster posts entries inside an already-open transaction. Satisfied by the
// journal service.
type Poster interface {
	CreatePostedInTx(ctx context.Context, tx journal.TxRepository, in journal.DraftInput) (journal.Entry, error)
}

// Store is the persistence surface the service needs. Satisfied by
// *Repository.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	List(ctx context.Context) ([]Year, error)
	GetByID(ctx context.Context, id int64) (Year, error)
	FindCurrent(ctx context.Context, today time.Time) (Year, error)
	RangeConflict(ctx context.Context, start, end time.Time) (bool, error)
	Insert(ctx context.Context, tx pgx.Tx, in CreateInput) (Year, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Year, error)
	MarkClosed(ctx context.Context, tx pgx.Tx, id, actorID int64, at time.Time) error
	FindRetainedEarnings(ctx context.Context, tx pgx.Tx) (int64, error)
	TemporaryAccountActivity(ctx context.Context, tx pgx.Tx, start, end time.Time) ([]AccountActivity, error)
}

// Service manages fiscal years and runs the year-end close.
type Service struct {
	repo    Store
	poster  Poster
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the fiscal period manager.
func NewService(repo Store, poster Poster, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, poster: poster, audit: audit, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns all fiscal years.
func (s *Service) List(ctx context.Context) ([]Year, error) {
	return s.repo.List(ctx)
}

// Get returns one fiscal year.
func (s *Service) Get(ctx context.Context, id int64) (Year, error) {
	return s.repo.GetByID(ctx, id)
}

// Current returns the open year covering today. The calendar day comes from
// the clock's own location; truncating the instant would shift the date near
// midnight on non-UTC hosts.
func (s *Service) Current(ctx context.Context) (Year, error) {
	y, m, d := s.now().Date()
	return s.repo.FindCurrent(ctx, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Create opens a new fiscal year. Ranges may never overlap an existing year,
// closed or open.
func (s *Service) Create(ctx context.Context, in CreateInput) (Year, error) {
	if err := in.Validate(); err != nil {
		return Year{}, err
	}
	var year Year
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		conflict, err := s.repo.RangeConflict(ctx, in.StartDate, in.EndDate)
		if err != nil {
			return err
		}
		if conflict {
			return fmt.Errorf("%w: %s to %s", shared.ErrDateOverlap,
				in.StartDate.Format("2006-01-02"), in.EndDate.Format("2006-01-02"))
		}
		year, err = s.repo.Insert(ctx, tx, in)
		return err
	})
	if err != nil {
		return Year{}, err
	}
	s.record(ctx, in.ActorID, "fiscal.create", year.ID, map[string]any{
		"name":  year.Name,
		"start": year.StartDate.Format("2006-01-02"),
		"end":   year.EndDate.Format("2006-01-02"),
	})
	return year, nil
}

// Close runs the year-end close in one transaction: the year row is locked
// exclusively, income and expense activity is swept into a single closing
// entry against retained earnings, and the year is marked closed. Posting
// holds a share lock on the covering year, so no entry can slip into the
// range while the close runs.
func (s *Service) Close(ctx context.Context, yearID, actorID int64) (CloseResult, error) {
	var result CloseResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		year, err := s.repo.GetForUpdate(ctx, tx, yearID)
		if err != nil {
			return err
		}
		if year.IsClosed {
			return fmt.Errorf("%w: %s", shared.ErrAlreadyClosed, year.Name)
		}
		retainedID, err := s.repo.FindRetainedEarnings(ctx, tx)
		if err != nil {
			return err
		}
		activity, err := s.repo.TemporaryAccountActivity(ctx, tx, year.StartDate, year.EndDate)
		if err != nil {
			return err
		}

		lines, netIncome := closingLines(activity, retainedID)
		at := s.now()
		result = CloseResult{NetIncome: netIncome}
		if len(lines) > 0 {
			draft := journal.DraftInput{
				Date:      year.EndDate,
				Memo:      fmt.Sprintf("Year-end close: %s", year.Name),
				Source:    journal.SourceClosing,
				CreatedBy: actorID,
				Lines:     lines,
			}
			entry, err := s.poster.CreatePostedInTx(ctx, journal.NewTxRepository(tx), draft)
			if err != nil {
				return err
			}
			result.ClosingEntry = &entry.ID
			result.EntryNumber = &entry.Number
		}
		if err := s.repo.MarkClosed(ctx, tx, year.ID, actorID, at); err != nil {
			return err
		}
		year.IsClosed = true
		year.ClosedBy = &actorID
		year.ClosedAt = &at
		result.Year = year
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}
	if s.metrics != nil {
		s.metrics.YearClosed()
	}
	meta := map[string]any{"net_income": result.NetIncome.StringFixed(2)}
	if result.EntryNumber != nil {
		meta["closing_entry_number"] = *result.EntryNumber
	}
	s.record(ctx, actorID, "fiscal.close", yearID, meta)
	return result, nil
}

// closingLines builds the closing entry: one line per temporary account with
// nonzero activity, zeroing it out, plus a balancing retained-earnings line
// when net income is nonzero. The returned lines always balance because the
// retained-earnings line carries exactly the difference.
func closingLines(activity []AccountActivity, retainedID int64) ([]journal.LineInput, decimal.Decimal) {
	netIncome := decimal.Zero
	var lines []journal.LineInput
	for _, a := range activity {
		net := a.Net()
		if net.IsZero() {
			continue
		}
		switch a.Type {
		case accounts.TypeIncome:
			netIncome = netIncome.Add(net)
		case accounts.TypeExpense:
			netIncome = netIncome.Sub(net)
		}
		line := journal.LineInput{AccountID: a.AccountID}
		// Zeroing out means posting against the account's normal side.
		creditNormal := !a.Type.DebitNormal()
		if (creditNormal && net.IsPositive()) || (!creditNormal && net.IsNegative()) {
			line.Debit = net.Abs()
		} else {
			line.Credit = net.Abs()
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, decimal.Zero
	}
	if !netIncome.IsZero() {
		re := journal.LineInput{AccountID: retainedID, Memo: "Net income transfer"}
		if netIncome.IsPositive() {
			re.Credit = netIncome
		} else {
			re.Debit = netIncome.Abs()
		}
		lines = append(lines, re)
	}
	return lines, netIncome
}

func (s *Service) record(ctx context.Context, actorID int64, action string, yearID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "fiscal_year",
		EntityID: fmt.Sprintf("%d", yearID),
		Meta:     meta,
		At:       s.now(),
	})
}

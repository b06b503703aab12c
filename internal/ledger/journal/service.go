package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/tillbook/tillbook/internal/ledger/shared"
	internalShared "github.com/tillbook/tillbook/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// MetricsPort counts posting-engine transitions.
type MetricsPort interface {
	EntryPosted(source string)
	EntryVoided()
	EntryReversed()
}

// Service is the posting engine: it validates drafts and drives entries
// through draft -> posted -> void, with reversal appending a compensating
// posted entry instead of touching history.
type Service struct {
	repo    Repository
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo Repository, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

// List returns entries matching the filter, newest number first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, internalShared.Pagination, error) {
	return s.repo.ListEntries(ctx, filter)
}

// CreateDraft validates and persists a new draft entry. The entry number is
// allocated here and never reused, even if the draft is later discarded.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkAccounts(ctx, tx, in.Lines); err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, in)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, in.Lines); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	entry.Lines = toLines(entry.ID, in.Lines)
	s.record(ctx, in.CreatedBy, "journal.create", entry.ID, map[string]any{
		"number": entry.Number,
		"source": in.Source,
	})
	return entry, nil
}

// UpdateDraft replaces the content of a draft. Posted and void entries are
// immutable.
func (s *Service) UpdateDraft(ctx context.Context, id int64, in DraftInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return fmt.Errorf("%w: entry #%d is %s", shared.ErrInvalidStatus, current.Number, current.Status)
		}
		if err := s.checkAccounts(ctx, tx, in.Lines); err != nil {
			return err
		}
		if err := tx.UpdateDraftHeader(ctx, id, in); err != nil {
			return err
		}
		if err := tx.ReplaceLines(ctx, id, in.Lines); err != nil {
			return err
		}
		entry = current
		entry.Date = in.Date
		entry.Reference = in.Reference
		entry.Memo = in.Memo
		entry.Source = in.Source
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	entry.Lines = toLines(id, in.Lines)
	s.record(ctx, in.CreatedBy, "journal.update_draft", id, map[string]any{"number": entry.Number})
	return entry, nil
}

// Post makes a draft authoritative. Balance is re-validated against the
// stored lines and the entry date must fall inside an open fiscal year.
func (s *Service) Post(ctx context.Context, entryID, actorID int64) (Entry, error) {
	if entryID == 0 {
		return Entry{}, fmt.Errorf("ledger: entry id required")
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return fmt.Errorf("%w: entry #%d is %s, only drafts can be posted", shared.ErrInvalidStatus, current.Number, current.Status)
		}
		if err := s.postInTx(ctx, tx, &current, actorID); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.EntryPosted(string(entry.Source))
	}
	s.record(ctx, actorID, "journal.post", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// Void marks a posted entry as no longer effective. Content stays untouched;
// balance queries simply exclude void entries.
func (s *Service) Void(ctx context.Context, in VoidInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if current.Status != StatusPosted {
			return fmt.Errorf("%w: entry #%d is %s, only posted entries can be voided", shared.ErrInvalidStatus, current.Number, current.Status)
		}
		year, err := tx.GetFiscalYearForDate(ctx, current.Date)
		if err != nil {
			return err
		}
		if year.IsClosed {
			return closedYearError(year)
		}
		at := s.now()
		if err := tx.MarkVoid(ctx, current.ID, in.ActorID, in.Reason, at); err != nil {
			return err
		}
		entry = current
		entry.Status = StatusVoid
		entry.VoidedBy = &in.ActorID
		entry.VoidedAt = &at
		entry.VoidReason = in.Reason
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.EntryVoided()
	}
	s.record(ctx, in.ActorID, "journal.void", entry.ID, map[string]any{
		"number": entry.Number,
		"reason": in.Reason,
	})
	return entry, nil
}

// Reverse appends a new posted entry mirroring the original's lines, dated at
// call time. The original stays posted and untouched.
func (s *Service) Reverse(ctx context.Context, in ReverseInput) (Entry, error) {
	if in.EntryID == 0 {
		return Entry{}, fmt.Errorf("ledger: entry id required")
	}
	var reversal Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if original.Status != StatusPosted {
			return fmt.Errorf("%w: entry #%d is %s, only posted entries can be reversed", shared.ErrInvalidStatus, original.Number, original.Status)
		}
		draft := DraftInput{
			Date:       entryDate(s.now()),
			Reference:  original.Reference,
			Memo:       defaultReversalMemo(in.Memo, original.Number),
			Source:     SourceAdjustment,
			CreatedBy:  in.ActorID,
			ReversesID: &original.ID,
			Lines:      mirrorLines(original.Lines),
		}
		created, err := s.CreatePostedInTx(ctx, tx, draft)
		if err != nil {
			return err
		}
		reversal = created
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.EntryReversed()
	}
	s.record(ctx, in.ActorID, "journal.reverse", in.EntryID, map[string]any{
		"reversal_id":     reversal.ID,
		"reversal_number": reversal.Number,
	})
	return reversal, nil
}

// DiscardDraft removes a draft outright. Drafts hold no ledger weight, so
// this is the only deletion the engine ever performs.
func (s *Service) DiscardDraft(ctx context.Context, entryID, actorID int64) error {
	var number int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return fmt.Errorf("%w: entry #%d is %s, only drafts can be discarded", shared.ErrInvalidStatus, current.Number, current.Status)
		}
		number = current.Number
		return tx.DeleteDraft(ctx, entryID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "journal.discard_draft", entryID, map[string]any{"number": number})
	return nil
}

// CreatePostedInTx validates, inserts, and immediately posts an entry inside
// an already-open transaction. Used by reversal and by the fiscal-year close,
// which must post its closing entry under the same lock it holds on the year.
func (s *Service) CreatePostedInTx(ctx context.Context, tx TxRepository, in DraftInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	if err := s.checkAccounts(ctx, tx, in.Lines); err != nil {
		return Entry{}, err
	}
	entry, err := tx.InsertEntry(ctx, in)
	if err != nil {
		return Entry{}, err
	}
	if err := tx.InsertLines(ctx, entry.ID, in.Lines); err != nil {
		return Entry{}, err
	}
	entry.Lines = toLines(entry.ID, in.Lines)
	if err := s.postInTx(ctx, tx, &entry, in.CreatedBy); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// postInTx re-validates the entry's stored lines and fiscal year, then flips
// it to POSTED. Mutates entry with the posting metadata on success.
func (s *Service) postInTx(ctx context.Context, tx TxRepository, entry *Entry, actorID int64) error {
	check := DraftInput{Date: entry.Date, Source: entry.Source, Lines: storedLineInputs(entry.Lines)}
	if err := check.Validate(); err != nil {
		return err
	}
	if err := s.checkAccounts(ctx, tx, check.Lines); err != nil {
		return err
	}
	year, err := tx.GetFiscalYearForDate(ctx, entry.Date)
	if err != nil {
		return err
	}
	if year.IsClosed {
		return closedYearError(year)
	}
	at := s.now()
	if err := tx.MarkPosted(ctx, entry.ID, actorID, at); err != nil {
		return err
	}
	entry.Status = StatusPosted
	entry.PostedBy = &actorID
	entry.PostedAt = &at
	return nil
}

func (s *Service) checkAccounts(ctx context.Context, tx TxRepository, lines []LineInput) error {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if !seen[line.AccountID] {
			seen[line.AccountID] = true
			ids = append(ids, line.AccountID)
		}
	}
	bad, err := tx.InactiveOrMissingAccounts(ctx, ids)
	if err != nil {
		return err
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: account ids %v", shared.ErrInvalidAccount, bad)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

// entryDate reduces the clock to its calendar day. The day is taken in the
// clock's own location; truncating the instant would shift the date near
// midnight on non-UTC hosts.
func entryDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func closedYearError(year FiscalYearRef) error {
	return fmt.Errorf("%w: %s (%s to %s)", shared.ErrPeriodClosed, year.Name,
		year.StartDate.Format("2006-01-02"), year.EndDate.Format("2006-01-02"))
}

func toLines(entryID int64, inputs []LineInput) []Line {
	out := make([]Line, 0, len(inputs))
	for idx, in := range inputs {
		out = append(out, Line{
			EntryID:   entryID,
			LineNo:    idx + 1,
			AccountID: in.AccountID,
			Memo:      in.Memo,
			Debit:     in.Debit,
			Credit:    in.Credit,
		})
	}
	return out
}

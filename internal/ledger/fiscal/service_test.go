package fiscal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/ledger/accounts"
	"github.com/tillbook/tillbook/internal/ledger/journal"
	"github.com/tillbook/tillbook/internal/ledger/shared"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const retainedID = int64(31)

func TestClosingLinesTransfersNetIncomeToRetainedEarnings(t *testing.T) {
	activity := []AccountActivity{
		{AccountID: 40, Code: "4000", Type: accounts.TypeIncome, Debit: decimal.Zero, Credit: d("1000.00")},
		{AccountID: 50, Code: "5000", Type: accounts.TypeExpense, Debit: d("600.00"), Credit: decimal.Zero},
	}
	lines, netIncome := closingLines(activity, retainedID)
	if !netIncome.Equal(d("400.00")) {
		t.Fatalf("expected net income 400.00, got %s", netIncome)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// Income zeroed with a debit, expense with a credit, remainder credited
	// to retained earnings.
	if !lines[0].Debit.Equal(d("1000.00")) || lines[0].AccountID != 40 {
		t.Fatalf("unexpected income line: %+v", lines[0])
	}
	if !lines[1].Credit.Equal(d("600.00")) || lines[1].AccountID != 50 {
		t.Fatalf("unexpected expense line: %+v", lines[1])
	}
	if !lines[2].Credit.Equal(d("400.00")) || lines[2].AccountID != retainedID {
		t.Fatalf("unexpected retained earnings line: %+v", lines[2])
	}
	assertBalanced(t, lines)
}

func TestClosingLinesHandlesNetLoss(t *testing.T) {
	activity := []AccountActivity{
		{AccountID: 40, Code: "4000", Type: accounts.TypeIncome, Credit: d("100.00"), Debit: decimal.Zero},
		{AccountID: 50, Code: "5000", Type: accounts.TypeExpense, Debit: d("250.00"), Credit: decimal.Zero},
	}
	lines, netIncome := closingLines(activity, retainedID)
	if !netIncome.Equal(d("-150.00")) {
		t.Fatalf("expected net loss -150.00, got %s", netIncome)
	}
	last := lines[len(lines)-1]
	if last.AccountID != retainedID || !last.Debit.Equal(d("150.00")) {
		t.Fatalf("expected retained earnings debited 150.00, got %+v", last)
	}
	assertBalanced(t, lines)
}

func TestClosingLinesFlipsContraActivity(t *testing.T) {
	// An income account with net debit activity (refund-heavy period) is
	// zeroed with a credit.
	activity := []AccountActivity{
		{AccountID: 40, Code: "4000", Type: accounts.TypeIncome, Debit: d("80.00"), Credit: d("30.00")},
		{AccountID: 50, Code: "5000", Type: accounts.TypeExpense, Debit: d("20.00"), Credit: decimal.Zero},
	}
	lines, netIncome := closingLines(activity, retainedID)
	if !netIncome.Equal(d("-70.00")) {
		t.Fatalf("expected -70.00, got %s", netIncome)
	}
	if !lines[0].Credit.Equal(d("50.00")) {
		t.Fatalf("expected income account credited 50.00, got %+v", lines[0])
	}
	assertBalanced(t, lines)
}

func TestClosingLinesSkipsZeroActivity(t *testing.T) {
	activity := []AccountActivity{
		{AccountID: 40, Code: "4000", Type: accounts.TypeIncome, Debit: d("25.00"), Credit: d("25.00")},
	}
	lines, netIncome := closingLines(activity, retainedID)
	if lines != nil {
		t.Fatalf("expected no lines, got %+v", lines)
	}
	if !netIncome.IsZero() {
		t.Fatalf("expected zero net income, got %s", netIncome)
	}
}

func TestClosingLinesOmitsRetainedEarningsWhenNetZero(t *testing.T) {
	activity := []AccountActivity{
		{AccountID: 40, Code: "4000", Type: accounts.TypeIncome, Credit: d("500.00"), Debit: decimal.Zero},
		{AccountID: 50, Code: "5000", Type: accounts.TypeExpense, Debit: d("500.00"), Credit: decimal.Zero},
	}
	lines, netIncome := closingLines(activity, retainedID)
	if !netIncome.IsZero() {
		t.Fatalf("expected zero net income, got %s", netIncome)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines without retained earnings, got %d", len(lines))
	}
	for _, line := range lines {
		if line.AccountID == retainedID {
			t.Fatal("retained earnings line must be omitted at zero net income")
		}
	}
	assertBalanced(t, lines)
}

func TestCreateInputValidate(t *testing.T) {
	in := CreateInput{
		Name:      "FY2026",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
	in.StartDate, in.EndDate = in.EndDate, in.StartDate
	if err := in.Validate(); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestYearCoversBoundaryDates(t *testing.T) {
	y := Year{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if !y.Covers(y.StartDate) || !y.Covers(y.EndDate) {
		t.Fatal("range boundaries must be inclusive")
	}
	if y.Covers(y.EndDate.AddDate(0, 0, 1)) {
		t.Fatal("day after end must not be covered")
	}
}

// stubStore replays the close transaction contract in memory. The pgx.Tx
// handed to callbacks is nil; nothing in the service dereferences it.
type stubStore struct {
	years      map[int64]*Year
	retained   int64
	retErr     error
	activity   []AccountActivity
	currentAsk time.Time
}

func newStubStore(years ...Year) *stubStore {
	s := &stubStore{years: make(map[int64]*Year), retained: retainedID}
	for _, y := range years {
		stored := y
		s.years[y.ID] = &stored
	}
	return s
}

func (s *stubStore) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (s *stubStore) List(ctx context.Context) ([]Year, error) { return nil, nil }

func (s *stubStore) GetByID(ctx context.Context, id int64) (Year, error) {
	y, ok := s.years[id]
	if !ok {
		return Year{}, shared.ErrYearNotFound
	}
	return *y, nil
}

func (s *stubStore) FindCurrent(ctx context.Context, today time.Time) (Year, error) {
	s.currentAsk = today
	for _, y := range s.years {
		if !y.IsClosed && y.Covers(today) {
			return *y, nil
		}
	}
	return Year{}, shared.ErrNoCurrentYear
}

func (s *stubStore) RangeConflict(ctx context.Context, start, end time.Time) (bool, error) {
	return false, nil
}

func (s *stubStore) Insert(ctx context.Context, tx pgx.Tx, in CreateInput) (Year, error) {
	y := Year{ID: int64(len(s.years) + 1), Name: in.Name, StartDate: in.StartDate, EndDate: in.EndDate}
	stored := y
	s.years[y.ID] = &stored
	return y, nil
}

func (s *stubStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Year, error) {
	y, ok := s.years[id]
	if !ok {
		return Year{}, shared.ErrYearNotFound
	}
	return *y, nil
}

func (s *stubStore) MarkClosed(ctx context.Context, tx pgx.Tx, id, actorID int64, at time.Time) error {
	y, ok := s.years[id]
	if !ok || y.IsClosed {
		return shared.ErrAlreadyClosed
	}
	y.IsClosed = true
	y.ClosedBy = &actorID
	y.ClosedAt = &at
	return nil
}

func (s *stubStore) FindRetainedEarnings(ctx context.Context, tx pgx.Tx) (int64, error) {
	if s.retErr != nil {
		return 0, s.retErr
	}
	return s.retained, nil
}

func (s *stubStore) TemporaryAccountActivity(ctx context.Context, tx pgx.Tx, start, end time.Time) ([]AccountActivity, error) {
	return s.activity, nil
}

// stubPoster validates each draft the way the posting engine would, then
// records it.
type stubPoster struct {
	drafts []journal.DraftInput
	nextID int64
}

func (p *stubPoster) CreatePostedInTx(ctx context.Context, tx journal.TxRepository, in journal.DraftInput) (journal.Entry, error) {
	if err := in.Validate(); err != nil {
		return journal.Entry{}, err
	}
	p.drafts = append(p.drafts, in)
	p.nextID++
	return journal.Entry{ID: 500 + p.nextID, Number: 9000 + p.nextID, Status: journal.StatusPosted}, nil
}

func openYear2026() Year {
	return Year{
		ID:        1,
		Name:      "FY2026",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestCloseSweepsNetIncomeAndMarksYearClosed(t *testing.T) {
	store := newStubStore(openYear2026())
	store.activity = []AccountActivity{
		{AccountID: 40, Code: "4000", Type: accounts.TypeIncome, Credit: d("1000.00"), Debit: decimal.Zero},
		{AccountID: 50, Code: "5000", Type: accounts.TypeExpense, Debit: d("600.00"), Credit: decimal.Zero},
	}
	poster := &stubPoster{}
	svc := NewService(store, poster, nil, nil)

	result, err := svc.Close(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !result.NetIncome.Equal(d("400.00")) {
		t.Fatalf("expected net income 400.00, got %s", result.NetIncome)
	}
	if result.ClosingEntry == nil || result.EntryNumber == nil {
		t.Fatalf("expected closing entry reference, got %+v", result)
	}
	if !result.Year.IsClosed || !store.years[1].IsClosed {
		t.Fatal("expected year marked closed")
	}
	if len(poster.drafts) != 1 {
		t.Fatalf("expected one closing entry, got %d", len(poster.drafts))
	}
	draft := poster.drafts[0]
	if draft.Source != journal.SourceClosing {
		t.Fatalf("expected CLOSING source, got %s", draft.Source)
	}
	if !draft.Date.Equal(store.years[1].EndDate) {
		t.Fatalf("closing entry must be dated on the year end, got %s", draft.Date)
	}
	if len(draft.Lines) != 3 {
		t.Fatalf("expected 3 closing lines, got %d", len(draft.Lines))
	}
}

func TestCloseSecondTimeReturnsAlreadyClosed(t *testing.T) {
	store := newStubStore(openYear2026())
	svc := NewService(store, &stubPoster{}, nil, nil)

	if _, err := svc.Close(context.Background(), 1, 7); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if _, err := svc.Close(context.Background(), 1, 7); !errors.Is(err, shared.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestCloseRequiresRetainedEarningsAccount(t *testing.T) {
	store := newStubStore(openYear2026())
	store.retErr = shared.ErrRetainedEarningsMissing
	poster := &stubPoster{}
	svc := NewService(store, poster, nil, nil)

	if _, err := svc.Close(context.Background(), 1, 7); !errors.Is(err, shared.ErrRetainedEarningsMissing) {
		t.Fatalf("expected ErrRetainedEarningsMissing, got %v", err)
	}
	if store.years[1].IsClosed {
		t.Fatal("year must stay open when the prerequisite fails")
	}
	if len(poster.drafts) != 0 {
		t.Fatalf("no entry may be posted, got %d", len(poster.drafts))
	}
}

func TestCloseWithoutMovementStillClosesYear(t *testing.T) {
	store := newStubStore(openYear2026())
	poster := &stubPoster{}
	svc := NewService(store, poster, nil, nil)

	result, err := svc.Close(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(poster.drafts) != 0 {
		t.Fatalf("expected no closing entry, got %d", len(poster.drafts))
	}
	if result.ClosingEntry != nil {
		t.Fatalf("expected nil closing entry, got %v", result.ClosingEntry)
	}
	if !result.NetIncome.IsZero() {
		t.Fatalf("expected zero net income, got %s", result.NetIncome)
	}
	if !store.years[1].IsClosed {
		t.Fatal("expected year marked closed")
	}
}

func TestCurrentResolvesCalendarDayInClockZone(t *testing.T) {
	store := newStubStore(openYear2026())
	svc := NewService(store, &stubPoster{}, nil, nil)
	// 01:00 on June 15 east of UTC is still June 14 as an instant; the
	// lookup must use the clock's own calendar day.
	svc.WithNow(func() time.Time {
		return time.Date(2026, 6, 15, 1, 0, 0, 0, time.FixedZone("UTC+13", 13*3600))
	})

	if _, err := svc.Current(context.Background()); err != nil {
		t.Fatalf("current: %v", err)
	}
	want := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	if !store.currentAsk.Equal(want) {
		t.Fatalf("expected lookup on %s, got %s", want, store.currentAsk)
	}
}

func assertBalanced(t *testing.T, lines []journal.LineInput) {
	t.Helper()
	debit, credit := decimal.Zero, decimal.Zero
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		t.Fatalf("closing entry unbalanced: debit %s, credit %s", debit, credit)
	}
}

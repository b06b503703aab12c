package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/tillbook/tillbook/internal/ledger/shared"
)

// stubRepo serves accounts from a map keyed by id.
type stubRepo struct {
	accounts map[int64]Account
	children map[int64]bool
	used     map[int64]bool
	inserted []CreateInput
	nextID   int64
}

func newStubRepo(accounts ...Account) *stubRepo {
	r := &stubRepo{
		accounts: make(map[int64]Account),
		children: make(map[int64]bool),
		used:     make(map[int64]bool),
		nextID:   100,
	}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *stubRepo) Insert(ctx context.Context, in CreateInput) (Account, error) {
	for _, a := range r.accounts {
		if a.Code == in.Code {
			return Account{}, shared.ErrDuplicateCode
		}
	}
	r.inserted = append(r.inserted, in)
	a := Account{
		ID:       r.nextID,
		Code:     in.Code,
		Name:     in.Name,
		Type:     in.Type,
		Subtype:  in.Subtype,
		ParentID: in.ParentID,
		IsSystem: in.IsSystem,
		IsActive: true,
	}
	r.nextID++
	r.accounts[a.ID] = a
	return a, nil
}

func (r *stubRepo) GetByID(ctx context.Context, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (r *stubRepo) List(ctx context.Context, filter ListFilter) ([]Account, error) {
	var out []Account
	for _, a := range r.accounts {
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *stubRepo) HasActiveChildren(ctx context.Context, id int64) (bool, error) {
	return r.children[id], nil
}

func (r *stubRepo) HasJournalLines(ctx context.Context, id int64) (bool, error) {
	return r.used[id], nil
}

func (r *stubRepo) SetActive(ctx context.Context, id int64, active bool) error {
	a := r.accounts[id]
	a.IsActive = active
	r.accounts[id] = a
	return nil
}

func (r *stubRepo) Delete(ctx context.Context, id int64) error {
	delete(r.accounts, id)
	return nil
}

func validCreate() CreateInput {
	return CreateInput{
		Code:    "1300",
		Name:    "Prepaid Expenses",
		Type:    TypeAsset,
		Subtype: SubtypeFixedAsset,
	}
}

func TestCreateRejectsMissingParent(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	in := validCreate()
	missing := int64(42)
	in.ParentID = &missing
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}

func TestCreateRejectsCrossTypeParent(t *testing.T) {
	parent := Account{ID: 1, Code: "4000", Type: TypeIncome, Subtype: SubtypeSalesRevenue, IsActive: true}
	svc := NewService(newStubRepo(parent), nil)
	in := validCreate()
	parentID := int64(1)
	in.ParentID = &parentID
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, shared.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}

func TestCreateRejectsSubtypeOutsideType(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	in := validCreate()
	in.Subtype = SubtypeSalesRevenue
	if _, err := svc.Create(context.Background(), in); err == nil {
		t.Fatal("expected error for subtype outside type")
	}
}

func TestDeactivateRejectsSystemAccount(t *testing.T) {
	system := Account{ID: 1, Code: "1000", Type: TypeAsset, IsSystem: true, IsActive: true}
	svc := NewService(newStubRepo(system), nil)
	if err := svc.Deactivate(context.Background(), 1, 7); !errors.Is(err, shared.ErrSystemAccount) {
		t.Fatalf("expected ErrSystemAccount, got %v", err)
	}
}

func TestDeactivateRejectsAccountWithActiveChildren(t *testing.T) {
	parent := Account{ID: 1, Code: "6000", Type: TypeExpense, IsActive: true}
	repo := newStubRepo(parent)
	repo.children[1] = true
	svc := NewService(repo, nil)
	if err := svc.Deactivate(context.Background(), 1, 7); !errors.Is(err, shared.ErrHasChildren) {
		t.Fatalf("expected ErrHasChildren, got %v", err)
	}
}

func TestDeactivateFlipsFlag(t *testing.T) {
	acc := Account{ID: 1, Code: "6000", Type: TypeExpense, IsActive: true}
	repo := newStubRepo(acc)
	svc := NewService(repo, nil)
	if err := svc.Deactivate(context.Background(), 1, 7); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if repo.accounts[1].IsActive {
		t.Fatal("expected account inactive")
	}
}

func TestDeleteRejectsAccountWithActivity(t *testing.T) {
	acc := Account{ID: 1, Code: "6000", Type: TypeExpense, IsActive: true}
	repo := newStubRepo(acc)
	repo.used[1] = true
	svc := NewService(repo, nil)
	if err := svc.Delete(context.Background(), 1, 7); !errors.Is(err, shared.ErrHasPostedActivity) {
		t.Fatalf("expected ErrHasPostedActivity, got %v", err)
	}
}

func TestDeleteRemovesUnusedAccount(t *testing.T) {
	acc := Account{ID: 1, Code: "6000", Type: TypeExpense, IsActive: true}
	repo := newStubRepo(acc)
	svc := NewService(repo, nil)
	if err := svc.Delete(context.Background(), 1, 7); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), 1); !errors.Is(err, shared.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

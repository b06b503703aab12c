package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalShared "github.com/tillbook/tillbook/internal/shared"

	"github.com/tillbook/tillbook/internal/ledger/shared"
)

// AuditPort records registry changes for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service manages the chart of accounts.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the registry service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create inserts a new account after validating code, type, and parent.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	if in.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return Account{}, fmt.Errorf("%w: parent %d does not exist", shared.ErrInvalidParent, *in.ParentID)
			}
			return Account{}, err
		}
		if parent.Type != in.Type {
			return Account{}, fmt.Errorf("%w: parent %s is %s, child is %s", shared.ErrInvalidParent, parent.Code, parent.Type, in.Type)
		}
	}
	account, err := s.repo.Insert(ctx, in)
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, in.ActorID, "account.create", account.ID, map[string]any{"code": account.Code, "type": account.Type})
	return account, nil
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns accounts matching the filter ordered by code.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Account, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter)
}

// Tree returns the account forest, optionally restricted to one type.
func (s *Service) Tree(ctx context.Context, typeFilter AccountType) ([]*TreeNode, error) {
	filter := ListFilter{Type: typeFilter}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return BuildTree(list), nil
}

// Deactivate retires an account without deleting it.
func (s *Service) Deactivate(ctx context.Context, id, actorID int64) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return fmt.Errorf("%w: %s", shared.ErrSystemAccount, account.Code)
	}
	children, err := s.repo.HasActiveChildren(ctx, id)
	if err != nil {
		return err
	}
	if children {
		return fmt.Errorf("%w: %s", shared.ErrHasChildren, account.Code)
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actorID, "account.deactivate", id, map[string]any{"code": account.Code})
	return nil
}

// Delete removes an account that never saw any journal activity. Accounts
// with activity must be deactivated instead.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return fmt.Errorf("%w: %s", shared.ErrSystemAccount, account.Code)
	}
	used, err := s.repo.HasJournalLines(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: %s", shared.ErrHasPostedActivity, account.Code)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "account.delete", id, map[string]any{"code": account.Code})
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, accountID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", accountID),
		Meta:     meta,
		At:       s.now(),
	})
}

package accounts

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// CreateInput carries fields for a new account.
type CreateInput struct {
	Code           string            `json:"code" validate:"required,max=16"`
	Name           string            `json:"name" validate:"required,max=128"`
	NameI18n       map[string]string `json:"name_i18n,omitempty"`
	Type           AccountType       `json:"type" validate:"required"`
	Subtype        AccountSubtype    `json:"subtype" validate:"required"`
	ParentID       *int64            `json:"parent_id,omitempty"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	IsSystem       bool              `json:"is_system"`
	ActorID        int64             `json:"-"`
}

// Validate checks structural rules that do not require storage access.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("ledger: account code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("ledger: account name required")
	}
	if !in.Type.Valid() {
		return fmt.Errorf("ledger: unknown account type %q", in.Type)
	}
	if !SubtypeBelongsTo(in.Type, in.Subtype) {
		return fmt.Errorf("ledger: subtype %q does not belong to type %q", in.Subtype, in.Type)
	}
	if in.OpeningBalance.Round(2).Cmp(in.OpeningBalance) != 0 {
		return fmt.Errorf("ledger: opening balance has more than two decimal places")
	}
	for tag := range in.NameI18n {
		if _, err := language.Parse(tag); err != nil {
			return fmt.Errorf("ledger: invalid locale tag %q: %w", tag, err)
		}
	}
	return nil
}

// ListFilter narrows account listings.
type ListFilter struct {
	Type       AccountType
	ActiveOnly bool
}

// Validate checks the optional type filter.
func (f ListFilter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return fmt.Errorf("ledger: unknown account type %q", f.Type)
	}
	return nil
}

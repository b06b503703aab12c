package accounts

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	TypeAsset     AccountType = "ASSET"
	TypeLiability AccountType = "LIABILITY"
	TypeEquity    AccountType = "EQUITY"
	TypeIncome    AccountType = "INCOME"
	TypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether debits increase the account balance.
func (t AccountType) DebitNormal() bool {
	return t == TypeAsset || t == TypeExpense
}

// AccountSubtype refines the account type.
type AccountSubtype string

const (
	SubtypeCash               AccountSubtype = "CASH"
	SubtypeBank               AccountSubtype = "BANK"
	SubtypeAccountsReceivable AccountSubtype = "ACCOUNTS_RECEIVABLE"
	SubtypeInventory          AccountSubtype = "INVENTORY"
	SubtypeFixedAsset         AccountSubtype = "FIXED_ASSET"
	SubtypeAccountsPayable    AccountSubtype = "ACCOUNTS_PAYABLE"
	SubtypeTaxPayable         AccountSubtype = "TAX_PAYABLE"
	SubtypeLoan               AccountSubtype = "LOAN"
	SubtypeCapital            AccountSubtype = "CAPITAL"
	SubtypeRetainedEarnings   AccountSubtype = "RETAINED_EARNINGS"
	SubtypeSalesRevenue       AccountSubtype = "SALES_REVENUE"
	SubtypeOtherIncome        AccountSubtype = "OTHER_INCOME"
	SubtypeCostOfGoods        AccountSubtype = "COST_OF_GOODS"
	SubtypeOperatingExpense   AccountSubtype = "OPERATING_EXPENSE"
	SubtypePayrollExpense     AccountSubtype = "PAYROLL_EXPENSE"
	SubtypeOtherExpense       AccountSubtype = "OTHER_EXPENSE"
)

var subtypesByType = map[AccountType][]AccountSubtype{
	TypeAsset:     {SubtypeCash, SubtypeBank, SubtypeAccountsReceivable, SubtypeInventory, SubtypeFixedAsset},
	TypeLiability: {SubtypeAccountsPayable, SubtypeTaxPayable, SubtypeLoan},
	TypeEquity:    {SubtypeCapital, SubtypeRetainedEarnings},
	TypeIncome:    {SubtypeSalesRevenue, SubtypeOtherIncome},
	TypeExpense:   {SubtypeCostOfGoods, SubtypeOperatingExpense, SubtypePayrollExpense, SubtypeOtherExpense},
}

// SubtypeBelongsTo reports whether s is a subtype scoped to t.
func SubtypeBelongsTo(t AccountType, s AccountSubtype) bool {
	for _, known := range subtypesByType[t] {
		if known == s {
			return true
		}
	}
	return false
}

// Account models a chart of accounts node.
type Account struct {
	ID             int64             `json:"id"`
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	NameI18n       map[string]string `json:"name_i18n,omitempty"`
	Type           AccountType       `json:"type"`
	Subtype        AccountSubtype    `json:"subtype"`
	ParentID       *int64            `json:"parent_id,omitempty"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	IsSystem       bool              `json:"is_system"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TreeNode is a presentation node of the account forest.
type TreeNode struct {
	Account  Account     `json:"account"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree assembles the account forest from a flat list in one grouping
// pass. Storage order is irrelevant; siblings are sorted by code. An account
// whose parent is absent from the input (filtered out or missing) becomes a
// root.
func BuildTree(list []Account) []*TreeNode {
	nodes := make(map[int64]*TreeNode, len(list))
	for _, acc := range list {
		nodes[acc.ID] = &TreeNode{Account: acc}
	}
	var roots []*TreeNode
	for _, acc := range list {
		node := nodes[acc.ID]
		if acc.ParentID != nil {
			if parent, ok := nodes[*acc.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Account.Code < nodes[j].Account.Code
	})
	for _, node := range nodes {
		sortNodes(node.Children)
	}
}

package shared

import "errors"

var (
	// ErrLinesImbalanced indicates debit sum != credit sum.
	ErrLinesImbalanced = errors.New("ledger: journal lines must balance")
	// ErrEmptyEntry indicates fewer than two lines.
	ErrEmptyEntry = errors.New("ledger: journal entry requires at least two lines")
	// ErrInvalidAccount indicates a line references an unknown or inactive account.
	ErrInvalidAccount = errors.New("ledger: line references unknown or inactive account")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrInvalidStatus indicates a forbidden lifecycle transition.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrVoidReasonRequired indicates void was called without a reason.
	ErrVoidReasonRequired = errors.New("ledger: void reason required")
	// ErrPeriodClosed indicates the affected date lies in a closed fiscal year.
	ErrPeriodClosed = errors.New("ledger: fiscal year is closed")
	// ErrNoFiscalYear indicates no fiscal year covers the affected date.
	ErrNoFiscalYear = errors.New("ledger: no fiscal year covers date")
	// ErrSourceAlreadyLinked indicates the source reference was posted before.
	ErrSourceAlreadyLinked = errors.New("ledger: source reference already linked to an entry")

	// ErrDuplicateCode indicates an account code collision.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrInvalidParent indicates a missing parent or a parent of another type.
	ErrInvalidParent = errors.New("ledger: parent account missing or of different type")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrSystemAccount indicates the account is system protected.
	ErrSystemAccount = errors.New("ledger: system account is protected")
	// ErrHasChildren indicates active child accounts exist.
	ErrHasChildren = errors.New("ledger: account has active children")
	// ErrHasPostedActivity indicates journal lines reference the account.
	ErrHasPostedActivity = errors.New("ledger: account has journal activity")

	// ErrDateOverlap indicates the fiscal year range intersects an existing one.
	ErrDateOverlap = errors.New("ledger: fiscal year overlaps existing range")
	// ErrAlreadyClosed indicates the fiscal year is already closed.
	ErrAlreadyClosed = errors.New("ledger: fiscal year already closed")
	// ErrYearNotFound indicates a missing fiscal year.
	ErrYearNotFound = errors.New("ledger: fiscal year not found")
	// ErrNoCurrentYear indicates no open fiscal year covers today.
	ErrNoCurrentYear = errors.New("ledger: no current fiscal year")
	// ErrRetainedEarningsMissing indicates the closing transfer target is absent.
	ErrRetainedEarningsMissing = errors.New("ledger: retained earnings account missing")
)

// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	ledger "github.com/tillbook/tillbook/internal/ledger/shared"
)

// RespondError maps ledger domain errors to RFC7807 responses. The rejection
// detail carries the violated invariant so callers can correct and resubmit.
// Unrecognised errors collapse to a generic 500 with no detail: a failed call
// never leaves partial state behind, so "operation failed, nothing changed"
// is the whole truth.
func RespondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", verrs.Error())
	case errors.Is(err, ErrMalformedBody):
		Problem(w, http.StatusBadRequest, "Bad Request", "malformed request body")
	case errors.Is(err, ledger.ErrDuplicateCode),
		errors.Is(err, ledger.ErrSourceAlreadyLinked),
		errors.Is(err, ledger.ErrDateOverlap):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ledger.ErrLinesImbalanced),
		errors.Is(err, ledger.ErrEmptyEntry),
		errors.Is(err, ledger.ErrInvalidAccount),
		errors.Is(err, ledger.ErrInvalidParent),
		errors.Is(err, ledger.ErrVoidReasonRequired):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrYearNotFound),
		errors.Is(err, ledger.ErrNoCurrentYear):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrPeriodClosed),
		errors.Is(err, ledger.ErrNoFiscalYear),
		errors.Is(err, ledger.ErrAlreadyClosed),
		errors.Is(err, ledger.ErrSystemAccount),
		errors.Is(err, ledger.ErrHasChildren),
		errors.Is(err, ledger.ErrHasPostedActivity),
		errors.Is(err, ledger.ErrRetainedEarningsMissing):
		Problem(w, http.StatusUnprocessableEntity, "Invalid State", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "operation failed, nothing changed")
	}
}

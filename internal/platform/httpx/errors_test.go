package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	ledger "github.com/tillbook/tillbook/internal/ledger/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ledger.ErrLinesImbalanced, http.StatusBadRequest},
		{ledger.ErrEmptyEntry, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", ledger.ErrInvalidAccount), http.StatusBadRequest},
		{ledger.ErrDuplicateCode, http.StatusConflict},
		{ledger.ErrSourceAlreadyLinked, http.StatusConflict},
		{ledger.ErrDateOverlap, http.StatusConflict},
		{ledger.ErrEntryNotFound, http.StatusNotFound},
		{ledger.ErrAccountNotFound, http.StatusNotFound},
		{ledger.ErrInvalidStatus, http.StatusUnprocessableEntity},
		{ledger.ErrPeriodClosed, http.StatusUnprocessableEntity},
		{ledger.ErrAlreadyClosed, http.StatusUnprocessableEntity},
		{ledger.ErrRetainedEarningsMissing, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: unexpected EOF", ErrMalformedBody), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: connection refused at 10.0.0.3"))
	if body := rr.Body.String(); len(body) > 0 && (rr.Code != http.StatusInternalServerError) {
		t.Fatalf("unexpected response: %d %s", rr.Code, body)
	}
	if got := rr.Body.String(); got == "" || containsAddr(got) {
		t.Fatalf("internal detail must not leak: %s", got)
	}
}

func containsAddr(s string) bool {
	for i := 0; i+8 <= len(s); i++ {
		if s[i:i+8] == "10.0.0.3" {
			return true
		}
	}
	return false
}

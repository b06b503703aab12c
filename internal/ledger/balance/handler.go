package balance

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillbook/tillbook/internal/platform/cache"
	"github.com/tillbook/tillbook/internal/platform/httpx"
)

// Handler wires reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	calc    *Calculator
	reports *cache.ReportCache
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, calc *Calculator, reports *cache.ReportCache) *Handler {
	return &Handler{logger: logger, calc: calc, reports: reports}
}

// MountRoutes registers HTTP routes for ledger reports.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger/trial-balance", h.trialBalance)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf := httpx.QueryDate(r, "as_of")
	key := "trial-balance"
	if asOf != nil {
		key += ":" + asOf.Format("2006-01-02")
	}
	if payload := h.reports.Get(r.Context(), key); payload != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}

	tb, err := h.calc.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload, err := json.Marshal(tb)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.reports.Set(r.Context(), key, payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

package fiscal

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillbook/tillbook/internal/platform/cache"
	"github.com/tillbook/tillbook/internal/platform/httpx"
)

// Handler wires fiscal year endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	reports *cache.ReportCache
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, reports *cache.ReportCache) *Handler {
	return &Handler{logger: logger, service: service, reports: reports}
}

// MountRoutes registers HTTP routes for fiscal years.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger/fiscal-years", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/current", h.current)
		r.Get("/{id}", h.get)
		r.Post("/{id}/close", h.close)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.ActorID = httpx.ActorID(r)
	year, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Warn("create fiscal year", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, year)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fiscal_years": years})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	year, err := h.service.Current(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, year)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fiscal year id")
		return
	}
	year, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, year)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fiscal year id")
		return
	}
	result, err := h.service.Close(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		h.logger.Warn("close fiscal year", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"fiscal_year":      result.Year,
		"net_income":       result.NetIncome,
		"closing_entry_id": result.ClosingEntry,
		"closing_number":   result.EntryNumber,
	})
}

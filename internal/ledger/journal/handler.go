package journal

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tillbook/tillbook/internal/platform/cache"
	"github.com/tillbook/tillbook/internal/platform/httpx"
)

// Handler wires posting-engine endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	reports *cache.ReportCache
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, reports *cache.ReportCache) *Handler {
	return &Handler{logger: logger, service: service, reports: reports}
}

// MountRoutes registers HTTP routes for journal entries.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger/journals", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.createDraft)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.updateDraft)
		r.Delete("/{id}", h.discardDraft)
		r.Post("/{id}/post", h.post)
		r.Post("/{id}/void", h.void)
		r.Post("/{id}/reverse", h.reverse)
	})
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	var in DraftInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.CreatedBy = httpx.ActorID(r)
	entry, err := h.service.CreateDraft(r.Context(), in)
	if err != nil {
		h.logger.Warn("create draft", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		DateFrom: httpx.QueryDate(r, "date_from"),
		DateTo:   httpx.QueryDate(r, "date_to"),
		Status:   EntryStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		Source:   EntrySource(strings.ToUpper(r.URL.Query().Get("source"))),
		Search:   strings.TrimSpace(r.URL.Query().Get("q")),
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	entries, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    entries,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var in DraftInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.CreatedBy = httpx.ActorID(r)
	entry, err := h.service.UpdateDraft(r.Context(), id, in)
	if err != nil {
		h.logger.Warn("update draft", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.Post(r.Context(), id, httpx.ActorID(r))
	if err != nil {
		h.logger.Warn("post entry", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	entry, err := h.service.Void(r.Context(), VoidInput{
		EntryID: id,
		ActorID: httpx.ActorID(r),
		Reason:  strings.TrimSpace(body.Reason),
	})
	if err != nil {
		h.logger.Warn("void entry", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var body struct {
		Memo string `json:"memo"`
	}
	// Body is optional for reversal.
	_ = httpx.DecodeJSON(r, &body)
	reversal, err := h.service.Reverse(r.Context(), ReverseInput{
		EntryID: id,
		ActorID: httpx.ActorID(r),
		Memo:    strings.TrimSpace(body.Memo),
	})
	if err != nil {
		h.logger.Warn("reverse entry", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, reversal)
}

func (h *Handler) discardDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	if err := h.service.DiscardDraft(r.Context(), id, httpx.ActorID(r)); err != nil {
		h.logger.Warn("discard draft", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

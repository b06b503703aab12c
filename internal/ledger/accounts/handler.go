package accounts

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tillbook/tillbook/internal/platform/cache"
	"github.com/tillbook/tillbook/internal/platform/httpx"
)

// BalanceReader computes an account's subtree balance. Satisfied by the
// balance calculator.
type BalanceReader interface {
	BalanceOf(ctx context.Context, accountID int64, asOf *time.Time) (decimal.Decimal, error)
}

// Handler wires account registry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	balances BalanceReader
	reports  *cache.ReportCache
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, balances BalanceReader, reports *cache.ReportCache) *Handler {
	return &Handler{logger: logger, service: service, balances: balances, reports: reports}
}

// MountRoutes registers HTTP routes for the account registry.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger/accounts", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/tree", h.tree)
		r.Get("/{id}", h.get)
		r.Get("/{id}/balance", h.balance)
		r.Post("/{id}/deactivate", h.deactivate)
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.ActorID = httpx.ActorID(r)
	account, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Warn("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Type:       AccountType(r.URL.Query().Get("type")),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": list})
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.Tree(r.Context(), AccountType(r.URL.Query().Get("type")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tree": nodes})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	asOf := httpx.QueryDate(r, "as_of")
	total, err := h.balances.BalanceOf(r.Context(), id, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"as_of":      asOf,
		"balance":    total,
	})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	if err := h.service.Deactivate(r.Context(), id, httpx.ActorID(r)); err != nil {
		h.logger.Warn("deactivate account", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "is_active": false})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	if err := h.service.Delete(r.Context(), id, httpx.ActorID(r)); err != nil {
		h.logger.Warn("delete account", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.reports.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tillbook/tillbook/internal/ledger/accounts"
	"github.com/tillbook/tillbook/internal/ledger/balance"
	"github.com/tillbook/tillbook/internal/ledger/fiscal"
	"github.com/tillbook/tillbook/internal/ledger/journal"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AccountsHandler *accounts.Handler
	JournalHandler  *journal.Handler
	FiscalHandler   *fiscal.Handler
	BalanceHandler  *balance.Handler
	JobHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AccountsHandler != nil {
		params.AccountsHandler.MountRoutes(r)
	}
	if params.JournalHandler != nil {
		params.JournalHandler.MountRoutes(r)
	}
	if params.FiscalHandler != nil {
		params.FiscalHandler.MountRoutes(r)
	}
	if params.BalanceHandler != nil {
		params.BalanceHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

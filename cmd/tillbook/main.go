package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tillbook/tillbook/internal/app"
	"github.com/tillbook/tillbook/internal/ledger/accounts"
	"github.com/tillbook/tillbook/internal/ledger/balance"
	"github.com/tillbook/tillbook/internal/ledger/fiscal"
	"github.com/tillbook/tillbook/internal/ledger/journal"
	"github.com/tillbook/tillbook/internal/observability"
	"github.com/tillbook/tillbook/internal/platform/cache"
	"github.com/tillbook/tillbook/internal/platform/db"
	"github.com/tillbook/tillbook/internal/shared"
	"github.com/tillbook/tillbook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reports uncached", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()
	reportCache := cache.NewReportCache(redisClient, cfg.ReportCacheTTL)

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	accountRepo := accounts.NewRepository(pool)
	accountService := accounts.NewService(accountRepo, auditLogger)

	journalRepo := journal.NewRepository(pool)
	journalService := journal.NewService(journalRepo, auditLogger, metrics)

	fiscalRepo := fiscal.NewRepository(pool)
	fiscalService := fiscal.NewService(fiscalRepo, journalService, auditLogger, metrics)

	calculator := balance.NewCalculator(balance.NewStore(pool))

	accountsHandler := accounts.NewHandler(logger, accountService, calculator, reportCache)
	journalHandler := journal.NewHandler(logger, journalService, reportCache)
	fiscalHandler := fiscal.NewHandler(logger, fiscalService, reportCache)
	balanceHandler := balance.NewHandler(logger, calculator, reportCache)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accountsHandler,
		JournalHandler:  journalHandler,
		FiscalHandler:   fiscalHandler,
		BalanceHandler:  balanceHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

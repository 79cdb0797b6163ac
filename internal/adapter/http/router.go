package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/vaultledger/internal/adapter/http/handler"
	"github.com/iho/vaultledger/internal/adapter/http/middleware"
	"github.com/iho/vaultledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler     *handler.AccountHandler
	TransactionHandler *handler.TransactionHandler
	LedgerHandler      *handler.LedgerHandler
	WebhookHandler     *handler.WebhookHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	Idempotency        *middleware.IdempotencyMiddleware
	RateLimiter        *middleware.RateLimiter
	// MetricsGatherer serves /metrics; nil disables the endpoint.
	MetricsGatherer prometheus.Gatherer
	Logger          zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Metrics)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	// Provider callbacks
	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		r.Post("/webhooks/funding", cfg.WebhookHandler.Funding)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		// Idempotency middleware for mutating requests
		idempotency := cfg.Idempotency
		if idempotency == nil && cfg.IdempotencyStore != nil {
			idempotency = middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, usecase.IdempotencyKeyTTL, cfg.Logger)
		}
		if idempotency != nil {
			r.Use(idempotency.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Provision)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{accountNumber}", cfg.AccountHandler.Get)
			r.Delete("/{accountNumber}", cfg.AccountHandler.Delete)
			r.Get("/{accountNumber}/transactions", cfg.TransactionHandler.ListByAccount)
			r.Get("/{accountNumber}/reconciliation", cfg.LedgerHandler.ReconcileAccount)
		})

		// Money movement
		r.Post("/withdrawals", cfg.TransactionHandler.Withdraw)
		r.Post("/transfers", cfg.TransactionHandler.Transfer)
		r.Get("/transactions/{reference}", cfg.TransactionHandler.Get)

		// Ledger-wide views
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/analytics", cfg.LedgerHandler.Analytics)
			r.Get("/reconciliation", cfg.LedgerHandler.Reconcile)
		})
	})

	return r
}

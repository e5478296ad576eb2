package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/iho/famledger/internal/adapter/http/handler"
	"github.com/iho/famledger/internal/adapter/http/middleware"
	"github.com/iho/famledger/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransactionHandler *handler.TransactionHandler
	TransferHandler    *handler.TransferHandler
	AccountHandler     *handler.AccountHandler
	HealthHandler      *handler.HealthHandler
	Logger             zerolog.Logger
	Metrics            *metrics.Metrics
	MetricsHandler     http.Handler
	RateLimiter        *middleware.RateLimiter
	TokenVerifier      middleware.TokenVerifier // nil disables authentication
	CORSAllowedOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyKeyHeader},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.Authenticate(cfg.TokenVerifier))
		}
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		// Reads
		r.Route("/accounts/{id}/balance", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.Summary)
			r.Get("/history", cfg.AccountHandler.History)
			r.Get("/verify", cfg.AccountHandler.Verify)
			r.Post("/materialize", cfg.AccountHandler.Materialize)
		})

		// Commands; every one needs an Idempotency-Key
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdempotencyKey)

			r.Post("/accounts/{id}/reconcile", cfg.AccountHandler.Reconcile)
			r.Post("/transfers", cfg.TransferHandler.Create)

			r.Route("/transactions", func(r chi.Router) {
				r.Post("/", cfg.TransactionHandler.Create)
				r.Post("/settle", cfg.TransactionHandler.Settle)
				r.Post("/import", cfg.TransactionHandler.Import)
				r.Patch("/{id}", cfg.TransactionHandler.Update)
				r.Delete("/{id}", cfg.TransactionHandler.Delete)
				r.Post("/{id}/restore", cfg.TransactionHandler.Restore)
				r.Post("/{id}/split", cfg.TransactionHandler.Split)
			})
		})
	})

	return r
}

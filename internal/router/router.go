// Package router assembles the HTTP surface of the marketplace.
package router

import (
	"net/http"
	"time"

	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/handler"
	"clothing-marketplace/internal/idempotency"
	"clothing-marketplace/internal/metrics"
	"clothing-marketplace/internal/middleware"
	"clothing-marketplace/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Health  *handler.HealthHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
	Return  *handler.ReturnHandler
	Webhook *handler.WebhookHandler
}

// Options carries the cross-cutting dependencies of the router.
type Options struct {
	Auth           config.AuthConfig
	AllowedOrigins []string
	RequestTimeout time.Duration
	// Replayer is nil when Redis is not configured; Idempotency-Key is then ignored.
	Replayer *idempotency.Replayer
	Metrics  *metrics.Metrics
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.Health.Check)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/payments", h.Webhook.Payments)
		r.Post("/shipping", h.Webhook.Shipping)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Auth, logger))

		r.Get("/products/{productID}/variants", h.Product.Variants)

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.Idempotency(opts.Replayer, logger)).Post("/", h.Order.Create)
			r.Get("/", h.Order.List)
			r.Get("/{orderID}", h.Order.GetByID)
			r.Get("/{orderID}/history", h.Order.History)
			r.Post("/{orderID}/cancel", h.Order.Cancel)
		})

		r.Route("/returns", func(r chi.Router) {
			r.With(middleware.Idempotency(opts.Replayer, logger)).Post("/", h.Return.Create)
			r.Get("/", h.Return.List)
			r.Get("/{returnID}", h.Return.GetByID)
			r.Post("/{returnID}/cancel", h.Return.Cancel)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logger, model.RoleAdmin))
			r.Post("/returns/{returnID}/approve", h.Return.Approve)
			r.Post("/returns/{returnID}/reject", h.Return.Reject)
		})
	})

	return r
}

// Package api provides the HTTP API for AlertArea.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/alertarea/alertarea/internal/api/handler"
	"github.com/alertarea/alertarea/internal/api/middleware"
	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/customarea"
	"github.com/alertarea/alertarea/internal/population"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Store            *catalogue.Store
	Index            *catalogue.Index
	Counter          *population.Counter
	Builder          *customarea.Builder
	BroadcastService *broadcast.Service

	// GatewayState reports the circuit state of the alert gateway
	// client. May be nil when no gateway is configured.
	GatewayState func() string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "alertarea-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireJSON)          // Reject non-JSON bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Store, cfg.Index, cfg.GatewayState)
	catalogueHandler := handler.NewCatalogueHandler(cfg.Store, cfg.Counter)
	customAreaHandler := handler.NewCustomAreaHandler(cfg.Builder, cfg.Counter)
	broadcastHandler := handler.NewBroadcastHandler(cfg.BroadcastService, cfg.Store, cfg.Builder)

	// Create rate limit middleware for different endpoint categories
	strictRateLimit := middleware.RateLimitByIP(middleware.StrictRateLimit)       // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Catalogue endpoints - standard rate limiting
		r.Route("/libraries", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", catalogueHandler.ListLibraries)
			r.Get("/{libraryId}", catalogueHandler.GetLibrary)
		})

		r.Route("/areas/{areaId}", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", catalogueHandler.GetArea)
			r.Get("/polygons", catalogueHandler.GetAreaPolygons)
		})

		// Custom area preview - geometry heavy, strict rate limiting
		r.With(expensiveRateLimit).Get("/custom-areas/preview", customAreaHandler.Preview)

		// Broadcast endpoints
		r.Route("/broadcasts", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", broadcastHandler.ListBroadcasts)
			// Creation recomposes the selection, which is expensive
			r.With(expensiveRateLimit).Post("/", broadcastHandler.CreateBroadcast)

			r.Route("/{broadcastId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", broadcastHandler.GetBroadcast)
				r.With(expensiveRateLimit).Put("/selection", broadcastHandler.UpdateSelection)
				r.With(expensiveRateLimit).Post("/areas", broadcastHandler.AddAreas)
				r.With(expensiveRateLimit).Delete("/areas/{areaId}", broadcastHandler.RemoveArea)
				r.With(standardRateLimit).Put("/content", broadcastHandler.UpdateContent)

				// Lifecycle transitions touch the sending network
				r.Group(func(r chi.Router) {
					r.Use(strictRateLimit)
					r.Post("/submit", broadcastHandler.SubmitBroadcast)
					r.Post("/approve", broadcastHandler.ApproveBroadcast)
					r.Post("/reject", broadcastHandler.RejectBroadcast)
					r.Post("/cancel", broadcastHandler.CancelBroadcast)
					r.Post("/complete", broadcastHandler.CompleteBroadcast)
				})
			})
		})
	})

	return r
}

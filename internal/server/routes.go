package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/campusjobs/jobboard/internal/cache"
	"github.com/campusjobs/jobboard/internal/handler"
	"github.com/campusjobs/jobboard/internal/metrics"
	"github.com/campusjobs/jobboard/internal/middleware"
	"github.com/campusjobs/jobboard/internal/service"
)

// Rate limit scopes. Each scope has its own bucket per client IP.
const (
	ScopeAuth  = "auth"
	ScopeApply = "apply"
)

// RouterConfig carries everything the router wires together.
type RouterConfig struct {
	Logger   *slog.Logger
	Identity *service.IdentityService
	Jobs     *service.JobService
	Health   *handler.HealthHandler
	Metrics  metrics.Snapshotter

	// Limiter is nil when rate limiting is off.
	Limiter cache.Limiter

	MaxRequestBodySize int64
	MaxUploadSize      int64
	CORSAllowedOrigins []string
	IsDevelopment      bool
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := handler.NewAuthHandler(cfg.Identity, logger)
	jobHandler := handler.NewJobHandler(cfg.Jobs, logger, cfg.MaxUploadSize)
	metricsHandler := handler.NewMetricsHandler(cfg.Metrics)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)))
	r.Use(middleware.Caller)

	// Probes and metrics
	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Healthz)
		r.Get("/readyz", cfg.Health.Readyz)
	}
	r.Get("/metrics", metricsHandler.Metrics)

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: cfg.Limiter,
		Enabled: cfg.Limiter != nil,
	}
	jsonBody := middleware.MaxBodySize(cfg.MaxRequestBodySize)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitIP(rateLimitCfg, ScopeAuth))
			r.Use(jsonBody)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", jobHandler.List)
			r.With(jsonBody).Post("/", jobHandler.Create)
			r.Get("/employer/{employerId}", jobHandler.ListByEmployer)
			r.Get("/resumes/{filename}", jobHandler.Resume)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", jobHandler.Delete)
				r.With(jsonBody).Put("/status", jobHandler.UpdateStatus)
				r.Get("/applicants", jobHandler.Applicants)
				// Upload size is enforced by the handler, not the JSON body limit.
				r.With(middleware.RateLimitIP(rateLimitCfg, ScopeApply)).Post("/apply", jobHandler.Apply)
			})
		})
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

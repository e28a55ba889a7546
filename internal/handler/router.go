package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/middleware"
	"github.com/warden/warden/internal/service"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Logger   *slog.Logger
	Auth     *service.AuthService
	Users    *service.UserService
	APIKeys  *service.APIKeyService
	Resolver middleware.PrincipalResolver
	Health   *HealthHandler
	Metrics  http.Handler
	Recorder metrics.Recorder

	AllowedOrigins []string
	MaxBodySize    int64
	IsDevelopment  bool
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Health == nil {
		cfg.Health = NewHealthHandler(nil, nil, cfg.Logger)
	}

	authHandler := NewAuthHandler(cfg.Auth, cfg.Users, cfg.Logger)
	userHandler := NewUserHandler(cfg.Users, cfg.Logger)
	apiKeyHandler := NewAPIKeyHandler(cfg.APIKeys, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.IsDevelopment))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Recorder))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	authenticate := middleware.Authenticate(middleware.AuthConfig{
		Logger:   cfg.Logger,
		Resolver: cfg.Resolver,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", authHandler.Token)
			r.Post("/register", authHandler.Register)
			r.With(authenticate, middleware.RequireActive()).Post("/test-token", authHandler.TestToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireActive())

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.Me)
				r.Patch("/me", userHandler.UpdateMe)

				r.With(middleware.RequireSuperuser()).Get("/", userHandler.List)
				r.With(middleware.RequireSuperuser()).Post("/", userHandler.Create)
				r.With(middleware.RequireSuperuser()).Post("/bulk-delete", userHandler.BulkDelete)

				r.Get("/{user_id}", userHandler.Get)
				r.Patch("/{user_id}", userHandler.Update)
				r.Delete("/{user_id}", userHandler.Delete)
			})

			r.Route("/api-keys", func(r chi.Router) {
				r.Get("/", apiKeyHandler.List)
				r.Post("/", apiKeyHandler.Create)
				r.Post("/with-expiry", apiKeyHandler.CreateWithExpiry)
				r.Get("/{key_id}", apiKeyHandler.Get)
				r.Patch("/{key_id}", apiKeyHandler.Update)
				r.Delete("/{key_id}", apiKeyHandler.Delete)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	return r
}

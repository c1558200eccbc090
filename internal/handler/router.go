package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/middleware"
	"github.com/rosterly/rosterly/internal/session"
)

// RouterConfig wires handlers and middleware into the application router.
type RouterConfig struct {
	Logger   *slog.Logger
	Base     *Handler
	Students *StudentHandler
	Auth     *AuthHandler
	Health   *HealthHandler
	Metrics  *MetricsHandler
	Sessions *session.Manager
	Users    middleware.UserLoader
	Recorder metrics.Recorder
	Security middleware.SecurityConfig
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.Base.InternalError))
	r.Use(middleware.Security(cfg.Security))
	if cfg.Security.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.Security.MaxRequestBodySize))
	}

	// Registered before the groups so sub-routers inherit them.
	r.NotFound(cfg.Base.NotFound)
	r.MethodNotAllowed(cfg.Base.MethodNotAllowed)

	// Operations endpoints (no session)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.Sessions.Middleware)
		r.Use(middleware.CurrentUser(middleware.CurrentUserConfig{
			Logger:  cfg.Logger,
			Users:   cfg.Users,
			OnError: cfg.Base.InternalError,
		}))

		r.Get("/", cfg.Base.Root)
		r.Get("/dbtest", cfg.Base.DBTest)

		r.Get("/signup", cfg.Auth.SignupForm)
		r.Post("/signup", cfg.Auth.Signup)
		r.Get("/login", cfg.Auth.LoginForm)
		r.Post("/login", cfg.Auth.Login)
		r.Post("/logout", cfg.Auth.Logout)

		r.Route("/students", func(r chi.Router) {
			r.Use(middleware.RequireLogin(cfg.Logger, cfg.Recorder))

			r.Get("/", cfg.Students.Index)
			r.Post("/", cfg.Students.Create)
			r.Get("/new", cfg.Students.New)
			r.Get("/{id}", cfg.Students.Show)
			r.Post("/{id}", cfg.Students.Update)
			r.Get("/{id}/edit", cfg.Students.Edit)
			r.Post("/{id}/delete", cfg.Students.Delete)
		})
	})

	return r
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hours-watch/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	APISecret      string
	JWTService     jwt.Service
	AuthHandler    AuthHandler
	TrackerHandler TrackerHandler
	RunHandler     RunHandler
	CronHandler    CronHandler
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.SchemaECS,
			// Keep the event stream and health checks out of the request log.
			Skip: func(req *http.Request, respStatus int) bool {
				return req.URL.Path == "/health" || req.URL.Path == "/api/v1/runs/events"
			},
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", cfg.AuthHandler.Login)
		})

		// Machine-to-machine
		r.Route("/cron", func(r chi.Router) {
			r.Use(middleware.APISecretRequired(cfg.APISecret))
			r.Post("/check-hours", cfg.CronHandler.CheckHours)
		})

		// Authenticated by a short-lived token in the query string
		r.Get("/runs/events", cfg.RunHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(cfg.JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(cfg.JWTService))
			r.Use(middleware.AdminOnly)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)

			r.Route("/tmetric", func(r chi.Router) {
				r.Use(chiMiddleware.AllowContentType("application/json"))
				r.Post("/check-hours", cfg.TrackerHandler.CheckHours)
				r.Post("/charts", cfg.TrackerHandler.Charts)
				r.Post("/project-charts", cfg.TrackerHandler.ProjectCharts)
			})

			r.Get("/runs", cfg.RunHandler.List)
			r.Get("/runs/events/token", cfg.RunHandler.GetSSEToken)
			r.Get("/runs/{id}", cfg.RunHandler.Get)
			r.Get("/runs/{id}/artifacts", cfg.RunHandler.Artifacts)
			r.Get("/runs/{id}/artifacts/{name}", cfg.RunHandler.Artifact)
		})
	})
	return r
}

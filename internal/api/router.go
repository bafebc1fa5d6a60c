package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api/middleware"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api/shared"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/auth"
	"github.com/rs/cors"
)

// RouterConfig holds what NewRouter needs beyond the handler.
type RouterConfig struct {
	Handler        *StudioHandler
	AllowedOrigins []string
	// Tokens enables bearer authentication on /api when set.
	Tokens auth.TokenService
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	h := cfg.Handler
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TraceMiddleware(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if cfg.Tokens != nil {
			r.Use(middleware.NewAuthMiddleware(cfg.Tokens).Authenticate)
		}

		r.Get("/tools", h.ListTools)
		r.Route("/tools/{tool}", func(r chi.Router) {
			r.Get("/jobs", h.ListJobs)
			r.Post("/jobs", h.SubmitJobs)
			r.Delete("/jobs", h.ClearJobs)
			r.Post("/jobs/retry-failed", h.RetryFailed)
			r.Get("/jobs/{id}", h.GetJob)
			r.Post("/jobs/{id}/retry", h.RetryJob)
			r.Post("/jobs/{id}/variants", h.SpawnVariants)
			r.Get("/jobs/{id}/output", h.GetOutput)

			r.Put("/reference", h.SetReference)
			r.Delete("/reference", h.ClearReference)

			r.Put("/scene", h.SetScene)
			r.Delete("/scene", h.ClearScene)

			r.Get("/export", h.Export)
			r.Get("/events", h.Events)
		})
	})

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", middleware.TraceHeader},
	})

	return c.Handler(r)
}

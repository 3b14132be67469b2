package api

import (
	stdhttp "net/http"
	"time"

	"reelforge/internal/infra"
	"reelforge/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the single-project API. Scripting is rate limited per
// client because every call spends model quota.
func NewRouter(app *App, logger infra.Logger, allowedOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(logger))
	if len(allowedOrigins) > 0 {
		r.Use(middleware.CORS(allowedOrigins))
	}

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.PerClient(5, time.Minute)).Post("/projects", app.CreateProject)

		r.Route("/project", func(r chi.Router) {
			r.Get("/", app.GetProject)
			r.Delete("/", app.Reset)
			r.Put("/scenes", app.UpdateScenes)
			r.Post("/generate", app.StartGeneration)
			r.Get("/progress", app.Progress)
			r.Get("/export", app.Export)
		})
	})

	return r
}

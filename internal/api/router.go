package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/tokgrabba/internal/api/handler"
	mw "github.com/iconidentify/tokgrabba/internal/api/middleware"
)

// NewRouter creates the ops HTTP router. The /api/v1 routes require apiKey
// when it is non-empty.
func NewRouter(
	healthHandler *handler.HealthHandler,
	runHandler *handler.RunHandler,
	uiHandler *handler.UIHandler,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Status page; its API calls carry the key
	r.Get("/", uiHandler.Status)

	r.Route("/api/v1", func(r chi.Router) {
		if apiKey != "" {
			r.Use(mw.APIKeyAuth(apiKey))
		}

		r.Get("/stats", healthHandler.Stats)
		r.Get("/runs", runHandler.List)
		r.Get("/runs/{runID}", runHandler.Get)
	})

	return r
}

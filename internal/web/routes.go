package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-dedup/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config)
	dedupeHandler := handlers.NewDedupeHandler(s.config)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)

		// Read-only: nothing under /api/v1 deletes files
		r.Post("/sweep", dedupeHandler.Sweep)
		r.Post("/plan", dedupeHandler.Plan)
	})
}

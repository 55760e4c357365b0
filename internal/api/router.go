package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Raw client protocol passthrough
		r.Post("/command", s.handleCommand)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
			})
		})

		r.Route("/ir-devices", func(r chi.Router) {
			r.Post("/", s.handleCreateIRDevices)
			r.Delete("/{id}", s.handleDeleteIRDevice)
		})

		r.Route("/scenes", func(r chi.Router) {
			r.Get("/", s.handleListScenes)

			r.Route("/{name}", func(r chi.Router) {
				r.Put("/", s.handlePutScene)
				r.Delete("/", s.handleDeleteScene)
				r.Post("/enter", s.handleEnterScene)
			})
		})

		r.Get("/asrkey", s.handleGetASRKey)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

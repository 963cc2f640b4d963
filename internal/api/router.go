package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleAuthMe)

			// Sensor endpoints
			r.Route("/sensors", func(r chi.Router) {
				r.Get("/", s.handleListSensors)
				r.With(s.requireAdmin).Post("/", s.handleCreateSensor)
				r.Get("/readings", s.handleLiveReadings)

				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", s.handleGetSensor)
					r.With(s.requireAdmin).Put("/", s.handleUpdateSensor)
					r.With(s.requireAdmin).Delete("/", s.handleDeleteSensor)
					r.Get("/logs", s.handleSensorLogs)
				})
			})

			// Device endpoints
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.With(s.requireAdmin).Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.With(s.requireAdmin).Put("/", s.handleUpdateDevice)
					r.With(s.requireAdmin).Delete("/", s.handleDeleteDevice)
					r.With(s.requireAdmin).Post("/control", s.handleControlDevice)
				})
			})

			// Automation rule endpoints
			r.Route("/rules", func(r chi.Router) {
				r.Get("/", s.handleListRules)
				r.With(s.requireAdmin).Post("/", s.handleCreateRule)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetRule)
					r.With(s.requireAdmin).Put("/", s.handleUpdateRule)
					r.With(s.requireAdmin).Delete("/", s.handleDeleteRule)
				})
			})

			// User management (admin only)
			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Put("/{id}/password", s.handleSetUserPassword)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})
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

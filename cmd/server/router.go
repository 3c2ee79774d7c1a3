package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/imagegen-api/internal/api"
	apiMiddleware "github.com/phrazzld/imagegen-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	relayHandler := api.NewRelayHandler(app.gateway, app.logger)
	sessionHandler := api.NewSessionHandler(app.sessions)
	historyHandler := api.NewHistoryHandler(app.history)

	r.Route("/api", func(r chi.Router) {
		// Relay endpoints
		r.Post("/generate", relayHandler.Generate)
		r.Get("/status", relayHandler.Status)

		// Server-side sessions
		r.Post("/sessions", sessionHandler.Create)
		r.Get("/sessions/{id}", sessionHandler.Get)
		r.Delete("/sessions/{id}", sessionHandler.Delete)

		// History
		r.Get("/history", historyHandler.List)
		r.Get("/history/{task_id}", historyHandler.Get)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.rateLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/tables", func(r chi.Router) {
				r.Get("/", s.handleListTables)
				r.Post("/", s.handleCreateTable)

				r.Route("/{table}", func(r chi.Router) {
					r.Delete("/", s.handleDeleteTable)
					r.Get("/columns", s.handleGetColumns)
					r.Post("/columns", s.handleAddColumns)
					r.Get("/schema", s.handleGetSchema)

					r.Route("/records", func(r chi.Router) {
						r.Get("/", s.handleListRecords)
						r.Post("/", s.handleAddRecords)

						r.Route("/{id}", func(r chi.Router) {
							r.Get("/", s.handleGetRecord)
							r.Patch("/", s.handleUpdateRecord)
							r.Delete("/", s.handleDeleteRecord)
							r.Get("/related/{other}", s.handleGetRelated)
						})
					})
				})
			})

			r.Route("/relations", func(r chi.Router) {
				r.Get("/", s.handleListRelations)
				r.Post("/", s.handleCreateRelation)
				r.Post("/link", s.handleLink)
				r.Delete("/link", s.handleUnlink)
			})

			if s.audit != nil {
				r.Get("/audit", s.handleListAudit)
			}

			r.Get(s.wsPath(), s.handleWebSocket)
		})
	})

	return r
}

// wsPath returns the configured WebSocket route, relative to /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports the server version and the state of each backing
// component. Any failing component turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	components := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
		"ws_clients": s.hub.ClientCount(),
	})
}

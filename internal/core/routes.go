package core

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes defines the routing hierarchy: global middleware, the
// authenticated /v1 group, and the unauthenticated operational routes.
//
// Middleware order: Recoverer outermost so every panic is caught, then
// request id (logging depends on it), then the request logger. Auth applies
// only inside /v1 so health and metrics stay probeable.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		for _, registrar := range s.V1RouteRegistrars {
			registrar(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
	if s.MetricsHandler != nil {
		s.router.Method(http.MethodGet, "/metrics", s.MetricsHandler)
	}
}

// HandleHealth is the liveness probe.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.Responder.JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{
		"status":  "ok",
		"service": s.Config.Service,
	}})
}

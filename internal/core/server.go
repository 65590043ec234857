package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoicestudio/internal/config"
)

// RouteRegistrar mounts a domain handler's routes onto the authenticated /v1
// group. The application entry point populates the list; the indirection
// avoids an import cycle between core and the handler packages.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the router and the chassis-level dependencies shared by
// every endpoint.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Responder *Responder

	V1RouteRegistrars []RouteRegistrar
	MetricsHandler    http.Handler

	router *chi.Mux
}

// NewServer initializes the chassis. The caller mounts routes afterwards via
// MountRoutes, which lets tests customize registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Responder: NewResponder(logger, cfg.Production()),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

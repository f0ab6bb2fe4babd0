// Package api provides the HTTP server, the v1 routes, the MCP endpoint and
// the API documentation.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/helixml/trialdex/application/service"
	"github.com/helixml/trialdex/infrastructure/api/middleware"
	v1 "github.com/helixml/trialdex/infrastructure/api/v1"
	"github.com/helixml/trialdex/infrastructure/api/v1/dto"
	mcpinternal "github.com/helixml/trialdex/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Backend answers the retrieval queries served over HTTP and MCP.
type Backend interface {
	SearchStructured(ctx context.Context, keyword string) (service.TrialMatches, error)
	SearchSemantic(ctx context.Context, question, nctID string) (service.ProtocolContext, error)
	Stats(ctx context.Context) (service.Stats, error)
}

// APIServer provides the HTTP API backed by a Backend.
type APIServer struct {
	backend      Backend
	version      string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer. version is reported by the MCP
// endpoint.
func NewAPIServer(backend Backend, version string, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		backend: backend,
		version: version,
		logger:  logger,
	}
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up the v1, health and MCP routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

func (a *APIServer) mountRoutes(router chi.Router) {
	trialsRouter := v1.NewTrialsRouter(a.backend, a.logger)
	protocolsRouter := v1.NewProtocolsRouter(a.backend, a.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Mount("/trials", trialsRouter.Routes())
		r.Mount("/protocols", protocolsRouter.Routes())
	})

	router.Get("/health", a.health)

	// MCP streams its responses and tracks sessions in headers, so it sits
	// outside the timeout group.
	mcpSrv := mcpinternal.NewServer(a.backend, a.version, a.logger)
	router.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv.MCPServer()))
}

// health handles GET /health. It reports the store counts, or 503 when the
// stores cannot be read.
func (a *APIServer) health(w http.ResponseWriter, r *http.Request) {
	stats, err := a.backend.Stats(r.Context())
	if err != nil {
		a.logger.Warn("health check failed", slog.Any("error", err))
		middleware.WriteJSON(w, http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Trials:    stats.Trials,
		Protocols: stats.Protocols,
	})
}

// DocsRouter returns a router for Swagger UI and the API document.
func (a *APIServer) DocsRouter(specURL string) *DocsRouter {
	return NewDocsRouter(specURL)
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = &server

	if a.routerCalled && a.router != nil {
		server.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(server.Router())
	}

	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}

package controlapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/skuld-io/skuld/internal/registry"
)

// API holds the router and the registry facade behind it.
// It follows the Dependency Injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// registry orchestrates the flag lifecycle across store, cache, and
	// notifier.
	registry *registry.Registry
}

// NewAPI creates a new API instance with the full middleware stack and
// routes configured. Panics if reg is nil.
func NewAPI(reg *registry.Registry) *API {
	if reg == nil {
		panic("controlapi: registry cannot be nil")
	}

	api := &API{
		Router:   chi.NewRouter(),
		registry: reg,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// RequestID: adds a unique ID to each request context (essential for tracing).
	a.Router.Use(middleware.RequestID)
	// RealIP: correctly sets the IP if behind a proxy/LB.
	a.Router.Use(middleware.RealIP)
	// Logger: logs request method, path, status, and duration.
	a.Router.Use(RequestLogger)
	// Recoverer: prevents the server from crashing on panics, returning 500 instead.
	a.Router.Use(middleware.Recoverer)
	// Metrics: records request counters and latency per route pattern.
	a.Router.Use(RequestMetrics)
	// Content-Type: forces JSON content type for API responses.
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Route("/flags", func(r chi.Router) {
			r.Post("/", a.handleCreateFlag)
			r.Get("/", a.handleListFlags)

			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", a.handleGetFlag)
				r.Patch("/", a.handleUpdateFlag)
				r.Delete("/", a.handleDeleteFlag)

				r.Post("/enable", a.handleEnableFlag)
				r.Post("/disable", a.handleDisableFlag)
				r.Post("/evaluate", a.handleEvaluateFlag)

				r.Get("/fields/{field}", a.handleGetFlagField)
			})
		})

		r.Post("/cache/clear", a.handleClearCache)
	})
}

// handleHealthCheck verifies the service is serving HTTP. Deep dependency
// checks live on the observability server's readiness probe.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// Package api exposes the advisor over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cropadvisor/internal"
	"cropadvisor/internal/advisor"
	"cropadvisor/ports"
)

// Deps are the services the HTTP surface calls into.
type Deps struct {
	Advisor   *advisor.Advisor
	Optimizer advisor.DosageOptimizer
	Model     *ports.ModelContext
	// Plots is optional; the plot endpoint is only mounted when it is set.
	Plots ports.PlotRepository
	// Gatherer backs /metrics when set.
	Gatherer prometheus.Gatherer
	Logger   *internal.Logger
}

// Server routes requests to handlers.
type Server struct {
	router  *chi.Mux
	deps    Deps
	timeout time.Duration
	logger  *internal.Logger
}

// NewServer builds the router. A zero timeout disables the per-request deadline.
func NewServer(deps Deps, timeout time.Duration) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  chi.NewRouter(),
		deps:    deps,
		timeout: timeout,
		logger:  logger.With("API"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout))
		}
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/crop-recommendation", s.handleCropRecommendation)
		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/recommendations/html", s.handleRecommendationsHTML)
		r.Post("/dosage", s.handleDosage)
		if s.deps.Plots != nil {
			r.Get("/users/{userID}/plots/recommendations", s.handlePlotRecommendations)
		}
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pop-scanner/internal/service"
)

// ScrapeServiceInterface defines the interface for scrape pipeline operations
type ScrapeServiceInterface interface {
	Run(ctx context.Context, input *service.RunInput) (*service.Summary, error)
}

// JobRepositoryInterface defines the job transitions the handlers need for
// failure bookkeeping
type JobRepositoryInterface interface {
	MarkFailed(ctx context.Context, jobID, errorMessage string) error
}

// Server represents the HTTP API server.
type Server struct {
	router        *mux.Router
	httpServer    *http.Server
	scrapeService ScrapeServiceInterface
	jobRepo       JobRepositoryInterface
	config        *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MetricsRegistry *prometheus.Registry
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, scrapeService ScrapeServiceInterface, jobRepo JobRepositoryInterface) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		scrapeService: scrapeService,
		jobRepo:       jobRepo,
		config:        config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.config.MetricsRegistry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.config.MetricsRegistry, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scrape", s.handleScrape).Methods("POST", "OPTIONS")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pop-scanner",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

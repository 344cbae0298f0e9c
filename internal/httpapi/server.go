// Package httpapi exposes the book service over JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ErickPolzin/Crud/internal/catalog"
	"github.com/ErickPolzin/Crud/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes bounds JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Options configures the router.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64 // <= 0 disables rate limiting
	RateLimitBurst int
	MaxBodyBytes   int64
	Metrics        *metrics.Metrics
	// Health reports whether the backing store is reachable.
	Health func(ctx context.Context) error
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	service *catalog.Service
	log     *zap.Logger
	opts    Options
	router  *chi.Mux
}

// NewServer creates the HTTP handler with all routes configured.
func NewServer(service *catalog.Service, log *zap.Logger, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	s := &Server{
		service: service,
		log:     log,
		opts:    opts,
		router:  chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(correlationID)
	s.router.Use(accessLog(s.log, s.opts.Metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	if s.opts.RateLimitRPS > 0 {
		s.router.Use(newRateLimiter(s.opts.RateLimitRPS, s.opts.RateLimitBurst, 5*time.Minute).Middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics.Handler())
	}

	s.router.Route("/api/books", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(middleware.RequestSize(s.opts.MaxBodyBytes))

		r.Get("/", s.handleListBooks)
		r.Post("/", s.handleCreateBook)
		r.Get("/{id}", s.handleGetBook)
		r.Put("/{id}", s.handleUpdateBook)
		r.Delete("/{id}", s.handleDeleteBook)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health(ctx); err != nil {
			s.log.Warn("Health check failed", zap.Error(err))
			http.Error(w, "unhealthy: database connection failed", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

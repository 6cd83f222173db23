package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/service"
)

// Config holds the listener settings
type Config struct {
	Port string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP
	TrustProxy  bool
	CORSOrigins []string
}

// Server represents the HTTP server
type Server struct {
	handler *Handler
	router  chi.Router
	server  *http.Server
	port    string
	logger  *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(shortener service.URLShortener, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Server {
	handler := NewHandler(shortener, m, logger)
	router := NewRouter(handler, m, logger, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		handler: handler,
		router:  router,
		server:  server,
		port:    cfg.Port,
		logger:  logger,
	}
}

// NewRouter wires the routes and middleware
func NewRouter(handler *Handler, m *metrics.Metrics, logger *zap.Logger, cfg Config) chi.Router {
	r := chi.NewRouter()

	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(AccessLog(logger, m))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}
	r.Use(middleware.Compress(5, "application/json"))

	r.Post("/shorten", handler.Shorten)
	r.Get("/healthz", handler.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/urls", func(r chi.Router) {
		r.Get("/", handler.ListURLs)
		r.Get("/{short}", handler.GetURL)
		r.Delete("/{short}", handler.DeleteURL)
	})

	r.Get("/{short}", handler.Redirect)

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("port", s.port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// Port returns the server port
func (s *Server) Port() string {
	return s.port
}

// Handler returns the request handlers
func (s *Server) Handler() *Handler {
	return s.handler
}

// Router returns the root http.Handler, useful with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

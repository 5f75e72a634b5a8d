// Package api provides the HTTP API server and handlers for the wardrobe catalog.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wardrobeapp/wardrobe-server/internal/config"
	"github.com/wardrobeapp/wardrobe-server/internal/http/response"
	"github.com/wardrobeapp/wardrobe-server/internal/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	services     *Services
	sseManager   *sse.Manager
	sseHandler   *sse.Handler
	router       *chi.Mux
	api          huma.API
	logger       *slog.Logger
	writeLimiter *RateLimiter // nil when rate limiting is disabled
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, sseManager *sse.Manager, cfg *config.Config, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		services:   services,
		sseManager: sseManager,
		router:     router,
		logger:     logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}
	if cfg.RateLimit.Enabled {
		s.writeLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute, cfg.RateLimit.Burst)
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("Wardrobe API", "1.0.0")
	humaConfig.Info.Description = "Personal clothing catalog"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases resources held by the server's middleware.
func (s *Server) Close() {
	if s.writeLimiter != nil {
		s.writeLimiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
// Compression is left out: it buffers the SSE stream.
func (s *Server) setupMiddleware(cfg *config.Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if s.writeLimiter != nil {
		s.router.Use(WriteRateLimitMiddleware(s.writeLimiter, s.logger))
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "no route for "+r.Method+" "+r.URL.Path, s.logger)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerItemRoutes()
	s.registerSearchRoutes()

	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

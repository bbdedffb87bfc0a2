// Package api provides the HTTP API server and handlers for the library server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/library-server/internal/http/response"
	"github.com/listenupapp/library-server/internal/ratelimit"
	"github.com/listenupapp/library-server/internal/sse"
	"github.com/listenupapp/library-server/internal/store/sqlite"
	"github.com/listenupapp/library-server/internal/validation"
)

// Options configures the optional parts of the HTTP stack.
type Options struct {
	CORSAllowedOrigins []string                    // empty disables CORS handling
	RateLimiter        *ratelimit.KeyedRateLimiter // nil disables rate limiting
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *sqlite.Store
	services   *Services
	sseManager *sse.Manager
	router     *chi.Mux
	api        huma.API
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *sqlite.Store, services *Services, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	if len(opts.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID", "X-Request-ID"},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
	}
	router.Use(RateLimitMiddleware(opts.RateLimiter, logger))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", logger)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, logger)
	})

	humaConfig := huma.DefaultConfig("Library Server API", "1.0.0")
	humaConfig.Info.Description = "Library directory, catalog, loans and reservations."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler(logger)

	s := &Server{
		store:      st,
		services:   services,
		sseManager: sseManager,
		router:     router,
		api:        api,
		validator:  validation.New(),
		logger:     logger,
	}

	s.registerRoutes()

	if sseManager != nil {
		router.Get("/api/events", sse.NewHandler(sseManager, logger).ServeHTTP)
	}

	return s
}

// registerRoutes registers every huma operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerLibraryRoutes()
	s.registerBookRoutes()
	s.registerCategoryRoutes()
	s.registerLoanRoutes()
	s.registerReservationRoutes()
	s.registerUserRoutes()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, used to export the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

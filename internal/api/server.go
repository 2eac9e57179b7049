// Package api provides the HTTP API server and handlers for the Narrate application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/narrateapp/narrate-server/internal/search"
	"github.com/narrateapp/narrate-server/internal/service"
	"github.com/narrateapp/narrate-server/internal/sse"
	"github.com/narrateapp/narrate-server/internal/store"
	"github.com/narrateapp/narrate-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	reader     *service.ReaderService
	highlights *service.HighlightService
	search     *search.SearchIndex
	sseManager *sse.Manager
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, reader *service.ReaderService, highlights *service.HighlightService, searchIndex *search.SearchIndex, sseManager *sse.Manager, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	s := &Server{
		store:      st,
		reader:     reader,
		highlights: highlights,
		search:     searchIndex,
		sseManager: sseManager,
		sseHandler: sseHandler,
		router:     chi.NewRouter(),
		validator:  validation.New(),
		logger:     logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Narrate API", "1.0.0")
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// The reading pane is a browser client served from elsewhere.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
}

// registerRoutes configures all HTTP routes.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerPlaybackRoutes()
	s.registerHighlightRoutes()
	s.registerSearchRoutes()

	// The event stream bypasses huma: SSE is a long-lived raw HTTP
	// response, not a JSON body the framework can model.
	s.router.Get("/api/v1/sync/stream", s.sseHandler.ServeHTTP)
}

// MessageResponse contains a simple message in API responses.
type MessageResponse struct {
	Message string `json:"message" doc:"Status message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

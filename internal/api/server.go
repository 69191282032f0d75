// Package api provides the HTTP API for batch ingestion, the taxonomy and the
// catalogue it feeds.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

// Options configures the HTTP surface.
type Options struct {
	Name        string
	Version     string
	CORSOrigins []string
	// SubmissionsPerMinute limits batch submissions per publisher. Zero disables the limit.
	SubmissionsPerMinute float64
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         *sqlite.Store
	services      *Services
	router        *chi.Mux
	api           huma.API
	logger        *slog.Logger
	submitLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(store *sqlite.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Name == "" {
		opts.Name = "Shelfwise API"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(opts.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(authMiddleware(services.Tokens))

	api := humachi.New(router, newHumaConfig(opts))
	RegisterErrorHandler()

	s := &Server{
		store:    store,
		services: services,
		router:   router,
		api:      api,
		logger:   logger,
	}
	if opts.SubmissionsPerMinute > 0 {
		s.submitLimiter = NewSubmissionLimiter(opts.SubmissionsPerMinute)
	}

	s.registerHealthRoutes()
	s.registerBatchRoutes()
	s.registerTaxonomyRoutes()
	s.registerBookRoutes()
	s.registerSearchRoutes()
	s.registerMediaRoutes()

	return s
}

func newHumaConfig(opts Options) huma.Config {
	cfg := huma.DefaultConfig(opts.Name, opts.Version)
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	cfg.Transformers = append(cfg.Transformers, EnvelopeTransformer)
	return cfg
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, used to render the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources.
func (s *Server) Close() {
	if s.submitLimiter != nil {
		s.submitLimiter.Stop()
	}
}

// bearerSecurity marks an operation as requiring a token.
var bearerSecurity = []map[string][]string{{"bearer": {}}}

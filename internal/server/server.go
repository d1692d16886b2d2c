package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/prono/internal/api/v1"
	"github.com/gosuda/prono/internal/api/ws"
	"github.com/gosuda/prono/internal/config"
	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/server/middleware"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes wired. ctx bounds the background
// sweepers of the rate limiters.
func New(ctx context.Context, cfg *config.ServerConfig, store v1.DataStore, broker domain.Broker, authSvc v1.AuthService) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	hub := ws.NewHub(broker, originHosts(cfg.Server.CORSOrigins)...)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api with two sub-groups:
	// 1. Unauthenticated token endpoints, limited per IP.
	// 2. Bearer-authenticated endpoints, limited per user.
	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.RateLimit.LoginPerIP, cfg.RateLimit.LoginBurst))

			authConfig := huma.DefaultConfig("Prono Auth API", "1.0.0")
			authConfig.Servers = []*huma.Server{{URL: "/api"}}
			// The main API below owns the docs routes.
			authConfig.OpenAPIPath = ""
			authConfig.DocsPath = ""
			authConfig.SchemasPath = ""
			authAPI := humachi.New(r, authConfig)
			registerAuthRoutes(authAPI, authSvc)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RateLimit(ctx, cfg.RateLimit.PerUser, cfg.RateLimit.UserBurst))

			apiConfig := huma.DefaultConfig("Prono API", "1.0.0")
			apiConfig.Servers = []*huma.Server{{URL: "/api"}}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, store, hub)
		})
	})

	// WebSocket routes. A missing or invalid token joins as Anonymous.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.WSAuth(cfg.JWT.Secret))
		registerWSRoutes(r, hub)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Handler returns the root handler, for embedding in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// originHosts converts CORS origins to the host patterns the websocket
// upgrader matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			log.Warn().Str("origin", o).Msg("ignoring malformed CORS origin for websocket")
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/perimeterhq/tenantd/internal/api/ws"
	"github.com/perimeterhq/tenantd/internal/auth"
	"github.com/perimeterhq/tenantd/internal/config"
	"github.com/perimeterhq/tenantd/internal/metrics"
	"github.com/perimeterhq/tenantd/internal/server/middleware"
	redisstore "github.com/perimeterhq/tenantd/internal/store/redis"
)

// Server is the HTTP server wiring all administrative routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	wsHub      *ws.Hub
	cfg        *config.Config
}

// New creates a Server with all routes wired. The provisioner and audit
// reader are provided through the v1 interfaces so tests can substitute
// fakes.
func New(ctx context.Context, cfg *config.Config, authSvc *auth.Service, provisioner TenantProvisioner, auditReader AuditReader, pubsub *redisstore.PubSub) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		wsHub:  ws.NewHub(pubsub),
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Administrative API: authenticated, rate limited, request metadata
	// captured for the audit write path.
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(authSvc))
		r.Use(middleware.RequestMeta())
		r.Use(middleware.RateLimit(ctx, 50, 100))

		apiConfig := huma.DefaultConfig("tenantd Admin API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, provisioner, auditReader, authSvc)
	})

	// Live audit tail.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.Auth(authSvc))
		r.Use(middleware.RequireAdmin())
		r.Get("/audit/{tenantID}", s.wsHub.ServeAuditTail)
	})

	// Health check and metrics (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", metrics.Handler())

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
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

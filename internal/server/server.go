// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer. It decides:
// - Which store, limiter and services back the handlers
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → store (sqlite | postgres)
//	              → limiter (memory | redis | off)
//	store → SessionService → AuthService → AuthHandler
//	      ↘ UserRepository ↗
//
// All dependencies are assembled here (the "composition root") rather than
// scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/github-login/internal/auth"
	"github.com/sakif/github-login/internal/config"
	"github.com/sakif/github-login/internal/handler"
	"github.com/sakif/github-login/internal/metrics"
	"github.com/sakif/github-login/internal/middleware"
	"github.com/sakif/github-login/internal/ratelimit"
	"github.com/sakif/github-login/internal/repository"
	postgresRepo "github.com/sakif/github-login/internal/repository/postgres"
	sqliteRepo "github.com/sakif/github-login/internal/repository/sqlite"
	"github.com/sakif/github-login/internal/service"
)

// store is what the server needs from a database backend. Both
// sqliteRepo.DB and postgresRepo.DB satisfy it.
type store interface {
	repository.UserRepository
	repository.SessionRepository
	repository.Pinger
	Close() error
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database and (optionally) the Redis client. Both are
// closed in Close, which Start calls on shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      store
	redis   *goredis.Client
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
}

// New creates a Server from cfg, opening the database and rate limiter.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	if err := s.setupLimiter(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up rate limiter: %w", err)
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	if cfg.DBDriver == config.DriverPostgres {
		db, err := postgresRepo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// setupLimiter picks the rate limiting backend. A Redis that is down at
// startup is logged, not fatal: the limiter fails open per request anyway.
func (s *Server) setupLimiter(ctx context.Context) error {
	switch s.config.RateLimitBackend {
	case config.RateLimitOff:
		s.logger.Warn("rate limiting is disabled")
	case config.RateLimitRedis:
		s.redis = goredis.NewClient(&goredis.Options{
			Addr:     s.config.RedisAddr,
			Password: s.config.RedisPassword,
		})
		limiter := ratelimit.NewRedis(s.redis, s.config.RateLimitRequests, s.config.RateLimitWindow)
		if err := limiter.Ping(ctx); err != nil {
			s.logger.Warn("redis unreachable at startup, requests will not be limited until it is",
				slog.String("addr", s.config.RedisAddr),
				slog.String("error", err.Error()),
			)
		}
		s.limiter = limiter
	case config.RateLimitMemory:
		s.limiter = ratelimit.NewMemory(s.config.RateLimitRequests, s.config.RateLimitWindow)
	default:
		return fmt.Errorf("unknown rate limit backend %q", s.config.RateLimitBackend)
	}
	return nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                       → Home page (rate limited)
// GET    /login                  → Sign-in page
// GET    /login/github           → Redirect to GitHub (rate limited)
// GET    /login/github/callback  → OAuth callback (rate limited)
// POST   /logout                 → End this session
// POST   /logout/all             → End every session of the user
// GET    /api/me                 → Current user (JSON)
// GET    /healthz                → Store health
// GET    /metrics                → Prometheus metrics
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers (the limiter keys on it)
// 3. Logger: logs each request with timing info
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. LoadSession: makes the session cookie available to handlers
func (s *Server) setupRoutes() error {
	secure := s.config.Secure()

	sessionService := service.NewSessionService(s.db, s.metrics, s.logger)
	authService := service.NewAuthService(s.db, sessionService, s.metrics, s.logger)

	github := auth.NewGitHubProvider(auth.GitHubConfig{
		ClientID:     s.config.GitHubClientID,
		ClientSecret: s.config.GitHubClientSecret,
		CallbackURL:  s.config.GitHubCallbackURL,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
	})

	authHandler := handler.NewAuthHandler(github, authService, sessionService, s.metrics, s.logger, secure)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	pageHandler, err := handler.NewPageHandler(s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(auth.LoadSession(sessionService, secure))

		r.Get("/login", pageHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/logout/all", authHandler.HandleLogoutAll)
		r.Get("/api/me", authHandler.HandleMe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.limiter, s.metrics, s.logger))

			r.Get("/", pageHandler.HandleHome)
			r.Get("/login/github", authHandler.HandleGitHubLogin)
			r.Get("/login/github/callback", authHandler.HandleGitHubCallback)
		})
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and Redis client.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database and Redis connections
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBDriver),
			slog.String("rateLimit", s.config.RateLimitBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

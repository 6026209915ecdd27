// Package server is the composition root: it opens the database and the
// optional Redis feed cache, builds services and handlers, mounts the routes
// and runs the HTTP server until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/cache"
	"github.com/sakif/inkwell/internal/handler"
	"github.com/sakif/inkwell/internal/middleware"
	sqliteRepo "github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port         int
	DBPath       string
	JWTSecret    string
	TokenTTL     time.Duration
	RedisURL     string // empty disables the feed cache
	FeedCacheTTL time.Duration
	BcryptCost   int
}

// Server owns the database and Redis connections; Start closes both on the
// way out.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client
}

// New opens the stores and wires every route. A Redis that cannot be reached
// is logged and the server runs without the feed cache.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	var feed *cache.FeedCache
	if cfg.RedisURL != "" {
		client, err := cache.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, feed cache disabled", slog.String("error", err.Error()))
		} else {
			s.redis = client
			feed = cache.NewFeedCache(client, cfg.FeedCacheTTL, logger)
		}
	}

	s.setupRoutes(tokens, feed)
	return s, nil
}

// setupRoutes mounts the API. Reads are public; OptionalAuth still picks up
// a token so profiles can report whether the caller follows the user.
// Everything that writes sits behind RequireAuth.
func (s *Server) setupRoutes(tokens *auth.TokenService, feed *cache.FeedCache) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	passwords := auth.NewPasswordServiceWithCost(s.config.BcryptCost)

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	userService := service.NewUserService(s.db, feed, s.logger)
	postService := service.NewPostService(s.db, s.db, s.db, s.db, feed, s.logger)
	tagService := service.NewTagService(s.db, s.logger)
	followService := service.NewFollowService(s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, userService, s.logger)
	postHandler := handler.NewPostHandler(postService, tagService, s.logger)
	userHandler := handler.NewUserHandler(userService, postService, followService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))

			r.Get("/posts", postHandler.HandleList)
			r.Get("/posts/{id}", postHandler.HandleGet)
			r.Get("/tags", postHandler.HandleListTags)
			r.Get("/tags/{name}/posts", postHandler.HandleListByTag)
			r.Get("/users/{username}", userHandler.HandleProfile)
			r.Get("/users/{username}/posts", userHandler.HandlePosts)
			r.Get("/users/{username}/followers", userHandler.HandleFollowers)
			r.Get("/users/{username}/following", userHandler.HandleFollowing)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Put("/me", authHandler.HandleUpdateMe)
			r.Delete("/me", authHandler.HandleDeleteMe)

			r.Post("/posts", postHandler.HandleCreate)
			r.Put("/posts/{id}", postHandler.HandleUpdate)
			r.Delete("/posts/{id}", postHandler.HandleDelete)
			r.Post("/posts/{id}/comments", postHandler.HandleAddComment)

			r.Post("/users/{username}/follow", userHandler.HandleFollow)
			r.Delete("/users/{username}/follow", userHandler.HandleUnfollow)
		})
	})
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and Redis connections.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then gives in-flight requests 30
// seconds to finish and closes the stores.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing server resources", slog.String("error", err.Error()))
		}
	}()

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
			slog.String("database", s.config.DBPath),
			slog.Bool("feedCache", s.redis != nil),
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

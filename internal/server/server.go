// Package server wires the HTTP server: router, middleware, handlers and
// the lifecycle of the store's connection pool.
//
// DEPENDENCY INJECTION FLOW:
//
//	cmd/server: config.Load → OpenStore → server.New
//	server.New: Store → service.UserService → handler.UserHandler → routes
//
// This is the composition root: every dependency is built here (or in main)
// and handed down, so no package reaches for a global.
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

	"github.com/sakif/usersdot/internal/auth"
	"github.com/sakif/usersdot/internal/config"
	"github.com/sakif/usersdot/internal/handler"
	"github.com/sakif/usersdot/internal/middleware"
	"github.com/sakif/usersdot/internal/service"
	"github.com/sakif/usersdot/web"
)

// APIPrefix is where the admin UI calls the REST API. The same routes are
// also served at the root for plain REST clients.
const APIPrefix = "/api"

// shutdownTimeout bounds how long in-flight requests may run after a stop signal.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it after the HTTP server has
// drained, so no request ever sees a closed pool.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  Store
	users  *service.UserService
}

// New builds the service layer on top of store and registers all routes.
func New(cfg config.Config, store Store, logger *slog.Logger) (*Server, error) {
	hasher, err := auth.NewPasswordService(cfg.PasswordAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("creating password service: %w", err)
	}
	mode, err := service.ParsePatchMode(cfg.PatchMode)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		users:  service.NewUserService(store, hasher, mode, logger),
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Users exposes the service, e.g. for the seed command.
func (s *Server) Users() *service.UserService {
	return s.users
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
// GET    /                    → admin UI (HTML)
// GET    /static/*            → embedded CSS/JS
// GET    /healthz             → store ping
// GET    /users               → list (page, limit, query)
// GET    /users/exists        → email taken?
// GET    /users/{id}          → one user
// POST   /users               → create (201)
// PUT    /users/{id}          → update
// DELETE /users/{id}          → delete (204)
// and the same /users and /healthz routes again under /api.
//
// MIDDLEWARE ORDER:
// RequestID first so Logger can print it; Recoverer inside Logger so a
// recovered panic is logged with its 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.CORSOrigins))

	fileServer := http.FileServer(http.FS(web.Static()))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	pages, err := handler.NewPageHandler(web.Templates(), APIPrefix, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	s.router.Get("/", pages.HandleAdmin)

	users := handler.NewUserHandler(s.users, s.logger)
	api := func(r chi.Router) {
		r.Get("/healthz", users.HandleHealth)
		r.Route("/users", func(r chi.Router) {
			r.Get("/", users.HandleList)
			r.Post("/", users.HandleCreate)
			r.Get("/exists", users.HandleExists)
			r.Get("/{id}", users.HandleGetByID)
			r.Put("/{id}", users.HandleUpdate)
			r.Delete("/{id}", users.HandleDelete)
		})
	}
	api(s.router)
	s.router.Route(APIPrefix, api)

	return nil
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. stop accepting new connections
//  2. wait up to 30s for in-flight requests
//  3. close the store's pool
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.Database.Driver),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
//   - Which store backs the repositories (MongoDB or SQLite)
//   - Which URL patterns map to which handler functions
//   - What middleware runs on every request
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → openStore → UserRepository / PostRepository
//	                          → AccountService / PostService
//	                          → AccountHandler / PostHandler → routes
//
// This is the "composition root": every dependency is wired here and
// nowhere else.
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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/auth"
	"github.com/sakif/blog-api/internal/config"
	"github.com/sakif/blog-api/internal/handler"
	"github.com/sakif/blog-api/internal/media"
	"github.com/sakif/blog-api/internal/middleware"
	"github.com/sakif/blog-api/internal/repository"
	mongoRepo "github.com/sakif/blog-api/internal/repository/mongo"
	sqliteRepo "github.com/sakif/blog-api/internal/repository/sqlite"
	"github.com/sakif/blog-api/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish after a
// shutdown signal.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store connection. Start closes it after the HTTP
// server has drained, so no request ever runs against a closed store.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  *store
}

// store is whichever backend STORE_DRIVER picked, viewed through the
// repository interfaces.
type store struct {
	users repository.UserRepository
	posts repository.PostRepository
	ping  func(ctx context.Context) error
	close func() error
}

// New connects to the store and builds the router.
//
// An unreachable store is fatal: the returned error wraps
// apperror.ErrStoreUnavailable and main exits non-zero.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordPolicy(cfg.PasswordMode)
	if err != nil {
		return nil, fmt.Errorf("creating password policy: %w", err)
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, apperror.StoreUnavailable(err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  st,
	}

	accounts := service.NewAccountService(st.users, tokens, passwords, logger)
	posts := service.NewPostService(st.posts, media.NewDiskStore(cfg.UploadDir, logger), logger)
	s.setupRoutes(tokens, routeHandlers{
		accounts: handler.NewAccountHandler(accounts, logger),
		posts:    handler.NewPostHandler(posts, logger),
		health:   handler.NewHealthHandler(pingFunc(st.ping), logger),
	})

	return s, nil
}

// openStore connects to the configured backend.
//
// IMPORT ALIASES:
// repository/mongo and repository/sqlite are imported as mongoRepo and
// sqliteRepo so they can't be confused with the driver packages.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		db, err := mongoRepo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDB))
		return &store{users: db.Users(), posts: db.Posts(), ping: db.Ping, close: db.Close}, nil

	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			// Like `mkdir -p`: the data directory may not exist on a fresh checkout.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened SQLite database", slog.String("path", cfg.DBPath))
		return &store{users: db.Users(), posts: db.Posts(), ping: db.Ping, close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health                  → store ping
// GET    /                        → every account (unauthenticated dump)
// POST   /signup                  → create account
// POST   /login                   → issue token
// POST   /upload                  → create post (multipart)
// GET    /blogs                   → list posts, newest first
// GET    /blogs/{id}              → one post
// PUT    /blogs/{id}              → edit title/content
// PUT    /blogs/{id}/like         → +1 like
// PUT    /blogs/{id}/unlike       → -1 like, floor 0
// POST   /blogs/{id}/comment      → append comment
// DELETE /blogs/{id}              → delete post
// GET    /uploads/*               → stored media files
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns an id to each request
//  2. RealIP: takes the client IP from proxy headers
//  3. OptionalAuth: puts bearer-token claims in the context (never rejects)
//  4. Logger: sees the claims from 3, and the 500 written by 5
//  5. Recoverer: turns a panic into a 500 instead of a crash
//  6. CORS: answers preflight requests from any origin
//  7. RequestSize: caps every body at MAX_BODY_BYTES
func (s *Server) setupRoutes(tokens *auth.TokenService, h routeHandlers) {
	accounts, posts := h.accounts, h.posts

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(auth.OptionalAuth(tokens))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(chimiddleware.RequestSize(s.config.MaxBodyBytes))

	// === Static Files ===
	// GET /uploads/images/123-cat.png → {UploadDir}/images/123-cat.png
	fileServer := http.FileServer(http.Dir(s.config.UploadDir))
	s.router.Handle(media.MountPoint+"/*", http.StripPrefix(media.MountPoint+"/", noDirListing(fileServer)))

	s.router.Get("/health", h.health.HandleHealth)

	// === Accounts ===
	s.router.Get("/", accounts.HandleListAccounts)
	s.router.Post("/signup", accounts.HandleSignup)
	s.router.Post("/login", accounts.HandleLogin)

	// === Blogs ===
	s.router.Post("/upload", posts.HandleUpload)
	s.router.Route("/blogs", func(r chi.Router) {
		r.Get("/", posts.HandleList)
		r.Get("/{id}", posts.HandleGet)
		r.Put("/{id}", posts.HandleUpdate)
		r.Delete("/{id}", posts.HandleDelete)
		r.Put("/{id}/like", posts.HandleLike)
		r.Put("/{id}/unlike", posts.HandleUnlike)
		r.Post("/{id}/comment", posts.HandleComment)
	})
}

// routeHandlers groups the handlers setupRoutes mounts.
type routeHandlers struct {
	accounts *handler.AccountHandler
	posts    *handler.PostHandler
	health   *handler.HealthHandler
}

// pingFunc adapts a store's Ping method value to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// noDirListing answers 404 for directory paths, which http.FileServer
// would otherwise render as an index of every stored file.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler exposes the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store connection.
func (s *Server) Close() error {
	return s.store.close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the store connection
//
// The deferred Close runs after Shutdown has returned, so step 3 always
// comes last.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	// Empty host: listen on all interfaces.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // uploads can be large
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.StoreDriver),
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

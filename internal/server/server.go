// Package server is the composition root: it opens the store, builds the
// services and handlers, and mounts them on a chi router.
//
// DEPENDENCY FLOW:
//
//	config → sqlstore.DB → auth.Authority → services → handlers → routes
//
// Each layer only receives the interfaces it needs, so tests can build a
// Server on an in-memory SQLite database and drive it through httptest.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/auth"
	"github.com/sakif/profiles-api/internal/config"
	"github.com/sakif/profiles-api/internal/handler"
	"github.com/sakif/profiles-api/internal/middleware"
	"github.com/sakif/profiles-api/internal/policy"
	"github.com/sakif/profiles-api/internal/repository/sqlstore"
	"github.com/sakif/profiles-api/internal/service"
)

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlstore.DB
}

// New opens the database, runs migrations and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// OpenStore opens the configured database, creating the parent directory of
// a SQLite file if needed. The admin CLI shares it with the server.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlstore.DB, error) {
	if cfg.DBDriver == config.DriverSQLite && cfg.DBDSN != ":memory:" {
		dir := filepath.Dir(cfg.DBDSN)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqlstore.New(ctx, cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// NewTokenIssuer returns the token format selected by TOKEN_MODE.
func NewTokenIssuer(cfg *config.Config, tokens auth.TokenStore) (auth.TokenIssuer, error) {
	switch cfg.TokenMode {
	case config.TokenModeJWT:
		return auth.NewJWTTokens(cfg.JWTSecret, cfg.TokenTTL)
	case config.TokenModeOpaque:
		return auth.NewOpaqueTokens(tokens, cfg.TokenTTL), nil
	default:
		return nil, fmt.Errorf("unsupported token mode %q", cfg.TokenMode)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes mounts middleware and routes.
//
//	GET    /healthz                 store ping
//	GET    /hello-view              demo view (also POST, PUT, PATCH, DELETE)
//	POST   /login                   credentials → {"token": "..."}
//	GET    /profiles[?search=]      list profiles
//	POST   /profiles                register
//	GET    /profiles/{id}           get profile
//	PUT    /profiles/{id}           replace own profile
//	PATCH  /profiles/{id}           patch own profile
//	GET    /feeds                   list posts
//	POST   /feeds                   create post (token required)
//	GET    /feeds/{id}              get post
//	PUT    /feeds/{id}              replace own post (token required)
//	PATCH  /feeds/{id}              patch own post (token required)
//	DELETE /feeds/{id}              delete own post (token required)
//
// Profiles cannot be deleted over HTTP; chi answers DELETE /profiles/{id}
// with 405.
func (s *Server) setupRoutes() error {
	tokenIssuer, err := NewTokenIssuer(s.config, s.db)
	if err != nil {
		return err
	}

	passwords := auth.NewPasswordService(s.config.BcryptCost)
	authority := auth.NewAuthority(s.db, passwords, tokenIssuer, s.logger)

	accountService := service.NewAccountService(s.db, passwords, authority, policy.UpdateOwnProfile, s.logger)
	feedService := service.NewFeedService(s.db, policy.UpdateOwnFeed, s.logger)

	profileHandler := handler.NewProfileHandler(accountService, s.logger)
	feedHandler := handler.NewFeedHandler(feedService, s.logger)
	loginHandler := handler.NewLoginHandler(accountService, s.logger)
	helloHandler := handler.NewHelloHandler()
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	// === Global middleware, outermost first ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.StripSlashes) // "/profiles/" and "/profiles" are the same route
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.router.Use(auth.Authenticate(authority, handler.WriteError))

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, r, &apperror.AppError{Err: apperror.ErrNotFound, Message: "Not found."})
	})
	s.router.MethodNotAllowed(methodNotAllowed)

	requireAuth := auth.RequireAuth(handler.WriteError)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/hello-view", func(r chi.Router) {
		r.Get("/", helloHandler.HandleGet)
		r.Post("/", helloHandler.HandlePost)
		r.Put("/", helloHandler.HandleEcho)
		r.Patch("/", helloHandler.HandleEcho)
		r.Delete("/", helloHandler.HandleEcho)
	})

	s.router.Post("/login", loginHandler.HandleLogin)

	s.router.Route("/profiles", func(r chi.Router) {
		r.Get("/", profileHandler.HandleList)
		r.Post("/", profileHandler.HandleCreate)
		r.Get("/{id}", profileHandler.HandleGet)
		// Ownership is checked after the lookup, so an unknown id is a 404
		// even for anonymous callers.
		r.Put("/{id}", profileHandler.HandleUpdate)
		r.Patch("/{id}", profileHandler.HandleUpdate)
	})

	s.router.Route("/feeds", func(r chi.Router) {
		r.Get("/", feedHandler.HandleList)
		r.Get("/{id}", feedHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", feedHandler.HandleCreate)
			r.Put("/{id}", feedHandler.HandleUpdate)
			r.Patch("/{id}", feedHandler.HandleUpdate)
			r.Delete("/{id}", feedHandler.HandleDelete)
		})
	})

	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = fmt.Fprintf(w, `{"error":"method_not_allowed","message":"Method \"%s\" not allowed."}`+"\n", r.Method)
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully,
// giving in-flight requests up to 30 seconds. The database is closed on
// return.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("db_driver", s.config.DBDriver),
			slog.String("token_mode", s.config.TokenMode),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

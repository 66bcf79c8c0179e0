// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: the one place where the store, the
// services, the handlers and the middleware are wired together. Everything
// below it receives its dependencies as arguments.
//
//	sqlstore.DB → UserStore, RoleRequestStore, FollowStore, ArticleStore
//	            → AuthService, RoleRequestService, FollowService, ArticleService
//	            → AuthHandler, AuthorizationHandler, FollowingHandler, ArticleHandler
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/handler"
	"github.com/sakif/blog-backend/internal/middleware"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository/sqlstore"
	"github.com/sakif/blog-backend/internal/service"
)

// Config holds what the server needs beyond its dependencies.
type Config struct {
	Port      int
	JWTSecret string
	TokenTTL  time.Duration

	// Passwords overrides the bcrypt cost. Nil means auth.DefaultCost.
	Passwords *auth.PasswordService
}

// Server owns the router. The database is owned by the caller, which opened
// it and closes it after Run returns.
type Server struct {
	router http.Handler
	config Config
	logger *slog.Logger
}

// New wires every layer on top of db. providers are the OAuth providers to
// expose; each gets /authentication/{name} and /authentication/{name}/callback.
func New(cfg Config, db *sqlstore.DB, logger *slog.Logger, providers ...auth.OAuthProvider) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("server: creating token service: %w", err)
	}
	passwords := cfg.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}

	users := db.Users()
	authService := service.NewAuthService(users, tokens, passwords, logger)
	roleRequestService := service.NewRoleRequestService(users, db.RoleRequests(), logger)
	followService := service.NewFollowService(users, db.Follows(), logger)
	articleService := service.NewArticleService(db.Articles(), logger)

	validate := handler.NewValidator()
	h := handlers{
		health:        handler.NewHealthHandler(db, logger),
		auth:          handler.NewAuthHandler(authService, validate, logger, providers...),
		authorization: handler.NewAuthorizationHandler(roleRequestService, validate, logger),
		following:     handler.NewFollowingHandler(followService, logger),
		articles:      handler.NewArticleHandler(articleService, validate, logger),
	}

	r := chi.NewRouter()
	routes(r, h, tokens, users, logger)

	return &Server{
		// otelhttp sits outside chi so the span covers middleware too.
		router: otelhttp.NewHandler(r, "blog-api"),
		config: cfg,
		logger: logger,
	}, nil
}

type handlers struct {
	health        *handler.HealthHandler
	auth          *handler.AuthHandler
	authorization *handler.AuthorizationHandler
	following     *handler.FollowingHandler
	articles      *handler.ArticleHandler
}

// routes registers every endpoint.
//
// MIDDLEWARE ORDER:
// RequestID runs first so the logger can print it; Recoverer runs inside the
// logger so a panic is logged as the 500 it becomes.
//
// AUTH LAYERS:
// RequireAuth turns the token into a user id (401 otherwise). RequireRole,
// always nested inside it, loads the user and checks the role (403).
func routes(r chi.Router, h handlers, tokens *auth.TokenService, users auth.UserLookup, logger *slog.Logger) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)

	requireAuth := auth.RequireAuth(tokens)

	r.Get("/healthcheck", h.health.HandleHealth)

	r.Route("/authentication", func(r chi.Router) {
		r.Post("/register", h.auth.HandleRegister)
		r.Post("/login", h.auth.HandleLogin)
		r.Get("/failure", h.auth.HandleFailure)
		r.With(auth.OptionalAuth(tokens)).Post("/logout", h.auth.HandleLogout)
		r.With(requireAuth).Get("/me", h.auth.HandleMe)

		for _, name := range h.auth.Providers() {
			r.Get("/"+name, h.auth.HandleOAuthLogin(name))
			r.Get("/"+name+"/callback", h.auth.HandleOAuthCallback(name))
		}
	})

	r.Route("/authorization", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/request-writer", h.authorization.HandleRequestWriter)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(users, logger, model.RoleAdmin))
			r.Get("/role-requests", h.authorization.HandleListPending)
			r.Post("/role-requests/{id}", h.authorization.HandleResolve)
		})
	})

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", h.articles.HandleList)
		r.Get("/{articleId}", h.articles.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(auth.RequireRole(users, logger, model.RoleWriter))
			r.Post("/", h.articles.HandleCreate)
			r.Put("/{articleId}", h.articles.HandleUpdate)
			r.Delete("/{articleId}", h.articles.HandleDelete)
		})
	})

	r.Route("/following", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/feed", h.following.HandleFeed)
		r.Get("/users", h.following.HandleRelations)
		r.Post("/{userId}/follow", h.following.HandleFollow)
		r.Delete("/{userId}/unfollow", h.following.HandleUnfollow)
	})
}

// Handler exposes the fully wired router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully: no new
// connections are accepted and in-flight requests get 30 seconds to finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(s.config.Port)),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}

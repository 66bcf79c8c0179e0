package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/repository/sqlstore"
	"github.com/sakif/blog-backend/internal/seed"
	"github.com/sakif/blog-backend/internal/server"
	"github.com/sakif/blog-backend/internal/telemetry"
)

// openDB opens the configured database, creating the directory of a SQLite
// file first. Opening runs the migrations.
func (a *app) openDB() (*sqlstore.DB, error) {
	if path, ok := sqlitePath(a.cfg.DatabaseURL); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlstore.Open(a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.logger.Info("database ready", slog.String("driver", db.Driver()))
	return db, nil
}

// sqlitePath extracts the file path from "sqlite:path" or "file:path".
// In-memory databases report false.
func sqlitePath(url string) (string, bool) {
	for _, prefix := range []string{"sqlite:", "sqlite3:", "file:"} {
		if rest, ok := strings.CutPrefix(url, prefix); ok {
			rest = strings.TrimPrefix(rest, "//")
			rest, _, _ = strings.Cut(rest, "?")
			if rest == "" || rest == ":memory:" {
				return "", false
			}
			return rest, true
		}
	}
	return "", false
}

func (a *app) migrate() error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	a.logger.Info("migrations applied")
	return nil
}

func (a *app) seed(ctx context.Context) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := seed.New(db.Users(), db.Articles(), auth.NewPasswordService(), a.logger).Run(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("users and articles seeded",
		slog.Int("users", res.Users),
		slog.Int("articles", res.Articles),
	)
	return nil
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Mode:     a.cfg.Tracing,
		Endpoint: a.cfg.OTLPEndpoint,
		Writer:   a.out,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			a.logger.Error("flushing traces", slog.String("error", err.Error()))
		}
	}()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	providers, err := a.oauthProviders(ctx)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:      a.cfg.Port,
		JWTSecret: a.cfg.JWTSecret,
		TokenTTL:  a.cfg.TokenTTL,
	}, db, a.logger, providers...)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

// oauthProviders builds a provider for every client id that is configured.
// Google needs network access for OIDC discovery, so a configured but
// unreachable Google fails startup instead of failing every login.
func (a *app) oauthProviders(ctx context.Context) ([]auth.OAuthProvider, error) {
	var providers []auth.OAuthProvider

	if c := a.cfg.Google; c.Enabled() {
		discoverCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		p, err := auth.NewGoogleProvider(discoverCtx, c.ClientID, c.ClientSecret, c.CallbackURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if c := a.cfg.GitHub; c.Enabled() {
		providers = append(providers, auth.NewGitHubProvider(c.ClientID, c.ClientSecret, c.CallbackURL))
	}

	for _, p := range providers {
		a.logger.Info("oauth provider enabled", slog.String("provider", p.Name()))
	}
	if len(providers) == 0 {
		a.logger.Warn("no OAuth provider configured, only local login is available")
	}
	return providers, nil
}

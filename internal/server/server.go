// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/go-accounts/internal/config"
	"codeberg.org/oliverandrich/go-accounts/internal/database"
	"codeberg.org/oliverandrich/go-accounts/internal/handlers"
	"codeberg.org/oliverandrich/go-accounts/internal/repository"
	"codeberg.org/oliverandrich/go-accounts/internal/securityhash"
	"codeberg.org/oliverandrich/go-accounts/internal/services/auth"
	"codeberg.org/oliverandrich/go-accounts/internal/services/email"
	"codeberg.org/oliverandrich/go-accounts/internal/services/tokens"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Hour
)

// App holds the wired components of the service.
type App struct {
	Echo   *echo.Echo
	Tokens *tokens.Store
	Auth   *auth.Service
	cfg    *config.Config
	log    *slog.Logger
}

// New wires the service on an open database.
func New(cfg *config.Config, db *sqlx.DB, mailer email.Sender, log *slog.Logger) *App {
	repo := repository.New(db)
	store := tokens.NewStore(repo, securityhash.New(), log)
	svc := auth.NewService(repo, store, mailer, auth.Options{
		VerifyTTL: cfg.Token.VerifyTTL,
		ResetTTL:  cfg.Token.ResetTTL,
	}, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, handlers.New(repo), handlers.NewAccounts(svc))

	return &App{Echo: e, Tokens: store, Auth: svc, cfg: cfg, log: log}
}

// NewMailer returns an SMTP sender, or a sender that logs links when no
// SMTP host is configured.
func NewMailer(cfg *config.Config, log *slog.Logger) (email.Sender, error) {
	if cfg.SMTP.Host == "" {
		log.Warn("no SMTP host configured, links are written to the log")
		return email.NewLogSender(log, cfg.Server.BaseURL), nil
	}
	svc, err := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	log := SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database", "error", closeErr)
		}
	}()

	mailer, err := NewMailer(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to set up mail: %w", err)
	}

	app := New(cfg, db, mailer, log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx)
}

// Serve listens until ctx is cancelled, pruning expired tokens meanwhile.
func (a *App) Serve(ctx context.Context) error {
	pruneCtx, cancelPrune := context.WithCancel(ctx)
	pruned := make(chan struct{})
	go func() {
		defer close(pruned)
		runPruner(pruneCtx, a.Tokens, pruneInterval, a.log)
	}()
	defer func() {
		cancelPrune()
		<-pruned
	}()

	errChan := make(chan error, 1)
	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	go func() {
		a.log.Info("server running", "url", a.cfg.Server.BaseURL)
		if err := a.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutting down server")
	case err := <-errChan:
		a.log.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		a.log.Error("failed to shutdown server", "error", err)
		return err
	}

	a.log.Info("server stopped")
	return nil
}

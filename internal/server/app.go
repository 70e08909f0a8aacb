// Package server initializes and runs the credential server: it opens the
// database, runs migrations, wires the credential service into the HTTP
// router, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/hushkey/internal/logging"
	"github.com/dmitrijs2005/hushkey/internal/server/config"
	"github.com/dmitrijs2005/hushkey/internal/server/httpapi"
	"github.com/dmitrijs2005/hushkey/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hushkey/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Hour
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	repos   repomanager.RepositoryManager
	service *services.CredentialService
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()

	service, err := services.NewCredentialService(db, repos, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("service init error: %w", err)
	}

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		repos:   repos,
		service: service,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.service, httpapi.NewCookieBinder(app.config), app.logger)

	srv := &http.Server{
		Addr:         app.config.HTTPServer.Address,
		Handler:      router,
		IdleTimeout:  app.config.HTTPServer.IdleTimeout,
		ReadTimeout:  app.config.HTTPServer.ReadTimeout,
		WriteTimeout: app.config.HTTPServer.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "starting http server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
}

// startTokenSweeper periodically deletes expired refresh token rows so the
// table does not grow without bound.
func (app *App) startTokenSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.repos.RefreshTokens(app.db).DeleteExpired(ctx)
			if err != nil {
				app.logger.Error(ctx, "token sweep failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired tokens deleted", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "env", app.config.Env)

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startTokenSweeper(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	return nil
}

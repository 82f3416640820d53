// Package app assembles the HTTP service: connection pool, store, router and
// listener. The server binary and the integration tests build it the same way.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/phrazzld/newsletter-api/internal/api"
	"github.com/phrazzld/newsletter-api/internal/config"
	"github.com/phrazzld/newsletter-api/internal/platform/postgres"
	"github.com/phrazzld/newsletter-api/internal/redact"
)

const (
	readHeaderTimeout      = 5 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Application is a bound, not yet serving, HTTP service.
type Application struct {
	config   config.Config
	db       *sql.DB
	ownsDB   bool
	listener net.Listener
	server   *http.Server
	logger   *slog.Logger
}

// Build opens a pool for cfg.Database and binds the listener. The pool is
// closed when RunUntilStopped returns.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	app, err := NewWithDB(cfg, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.ownsDB = true
	return app, nil
}

// NewWithDB binds the listener and wires handlers against an existing pool.
// The caller keeps ownership of db. Port 0 picks a free port; see Port.
func NewWithDB(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "app"))

	listener, err := net.Listen("tcp", cfg.Application.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", cfg.Application.Address(), err)
	}

	subscribers := postgres.NewPostgresSubscriberStore(db, logger)

	return &Application{
		config:   *cfg,
		db:       db,
		listener: listener,
		server: &http.Server{
			Handler:           api.NewRouter(subscribers, logger),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}, nil
}

// Port returns the port the listener is bound to.
func (a *Application) Port() int {
	return a.listener.Addr().(*net.TCPAddr).Port
}

// Addr returns the bound host:port.
func (a *Application) Addr() string {
	return a.listener.Addr().String()
}

// Handler exposes the router, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

// RunUntilStopped serves until ctx is canceled, then shuts down gracefully
// within the configured shutdown timeout.
func (a *Application) RunUntilStopped(ctx context.Context) error {
	defer a.cleanup()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", slog.String("addr", a.Addr()))
		if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			a.logger.Error("server failed", slog.String("error", redact.Error(err)))
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("shutting down server")
	}

	timeout := a.config.Application.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.logger.Info("server shutdown completed")
	return nil
}

func (a *Application) cleanup() {
	if !a.ownsDB || a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database pool", slog.String("error", redact.Error(err)))
	}
}

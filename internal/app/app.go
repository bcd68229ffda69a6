package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/heartlinkhq/heartlink-server/internal/config"
	"github.com/heartlinkhq/heartlink-server/internal/core"
	"github.com/heartlinkhq/heartlink-server/internal/messaging"
	"github.com/heartlinkhq/heartlink-server/internal/presence"
	"github.com/heartlinkhq/heartlink-server/internal/store"
	"github.com/heartlinkhq/heartlink-server/internal/store/memory"
	"github.com/heartlinkhq/heartlink-server/internal/store/sqlite"
	transporthttp "github.com/heartlinkhq/heartlink-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration. With no
// database path configured, the server degrades to the in-process ephemeral
// store instead of refusing to start.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	var st store.Store
	if cfg.DatabasePath != "" {
		sqliteStore, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		st = sqliteStore
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
	} else {
		st = memory.New()
		logger.Warn().Msg("no database configured, using ephemeral in-memory store")
	}

	tracker := presence.NewTracker(cfg.PresenceTTL)
	hub := core.NewHub(tracker)
	service := messaging.NewService(st, hub, tracker, logger)
	server := transporthttp.NewServer(hub, service, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

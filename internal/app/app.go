package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecomsupport/shopchat-server/internal/auth"
	"github.com/ecomsupport/shopchat-server/internal/config"
	"github.com/ecomsupport/shopchat-server/internal/core"
	"github.com/ecomsupport/shopchat-server/internal/media"
	"github.com/ecomsupport/shopchat-server/internal/preview"
	"github.com/ecomsupport/shopchat-server/internal/store"
	"github.com/ecomsupport/shopchat-server/internal/store/sqlite"
	transporthttp "github.com/ecomsupport/shopchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour, // 24 hour token expiry
	}
	authService := auth.NewService(st, jwtConfig)

	fetcher := preview.NewHTTPFetcher(cfg.PreviewTimeout, logger)

	// Media uploads are optional; without credentials the upload endpoint
	// answers 503 and everything else works.
	var uploader media.Uploader
	if cfg.CloudinaryURL != "" {
		up, err := media.NewCloudinary(cfg.CloudinaryURL, cfg.UploadFolder)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("init uploader: %w", err)
		}
		uploader = up
	} else {
		logger.Warn().Msg("no media backend configured, uploads disabled")
	}

	hub := core.NewHub(st, fetcher, logger)
	server := transporthttp.NewServer(hub, authService, st, uploader, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

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

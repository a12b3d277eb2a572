// Package server initializes and runs the placeshare API server.
// It opens the configured document store, wires the services, the avatar
// storage and the link resolver, and serves the JSON API until a shutdown
// signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/filex"
	"github.com/dmitrijs2005/placeshare/internal/linkresolve"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/metrics"
	"github.com/dmitrijs2005/placeshare/internal/netx"
	"github.com/dmitrijs2005/placeshare/internal/places"
	"github.com/dmitrijs2005/placeshare/internal/server/config"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/httpapi"
	"github.com/dmitrijs2005/placeshare/internal/server/services"
	"github.com/dmitrijs2005/placeshare/internal/server/storage"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   docstore.Store
	handler http.Handler
}

// openStore opens the configured backend. ready pings the database for
// PostgreSQL and is nil for the embedded store.
func openStore(ctx context.Context, c *config.Config) (docstore.Store, func(context.Context) error, error) {
	switch c.StoreBackend {
	case config.StoreBunt:
		path := c.BuntPath
		if path != ":memory:" {
			var err error
			if path, err = filex.EnsureParentDir(path); err != nil {
				return nil, nil, err
			}
		}
		s, err := docstore.OpenBunt(path)
		if err != nil {
			return nil, nil, fmt.Errorf("bunt init error: %w", err)
		}
		return s, nil, nil
	case config.StorePostgres:
		s, err := docstore.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(ctx); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, s.Ping, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)

	raw, ready, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	store := docstore.Instrumented(raw, metrics.ObserveStore)

	avatars := storage.NewS3AvatarStore(storage.Options{
		Region:        c.S3Region,
		AccessKey:     c.S3RootUser,
		SecretKey:     c.S3RootPassword,
		Bucket:        c.S3Bucket,
		BaseEndpoint:  c.S3BaseEndpoint,
		PresignExpiry: c.AvatarURLValidityDuration,
	})

	outbound := &http.Client{Timeout: c.LinkTimeout}
	placesClient := places.NewClient(places.Options{
		APIKey:         c.PlacesAPIKey,
		PlacesBaseURL:  c.PlacesBaseURL,
		GeocodeBaseURL: c.GeocodeBaseURL,
		HTTPClient:     outbound,
	}, logger)

	resolver, err := linkresolve.New(linkresolve.Options{
		Scheme:            c.AppScheme,
		ShortLinkHosts:    c.ShortLinkHosts,
		HTTPClient:        outbound,
		RequestsPerSecond: c.LinkRateLimit,
		Burst:             c.LinkBurst,
		CacheSize:         c.DetailsCacheSize,
		Observe:           metrics.ObserveLinkOutcome,
	}, placesClient, placesClient, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("link resolver init error: %w", err)
	}

	social := services.NewSocialService(store, logger)
	svc := httpapi.Services{
		Sync:        services.NewSyncService(store, social, avatars, netx.NewImageProbe(outbound), logger),
		Membership:  services.NewMembershipService(store, social, logger),
		Collections: services.NewCollectionService(store, avatars, logger),
		Loading:     services.NewLoadingService(store, social, logger),
		Social:      social,
		Users:       services.NewUserService(store, logger),
		Links:       resolver,
	}

	h := httpapi.NewRouter(httpapi.Options{
		SecretKey:      []byte(c.SecretKey),
		MetricsEnabled: c.MetricsEnabled,
		Ready:          ready,
	}, svc, logger)

	return &App{config: c, logger: logger, store: store, handler: h}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// startHTTPServer serves until ctx is cancelled, then drains in-flight
// requests.
func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(context.Background(), "store close", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}

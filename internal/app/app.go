// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/clock/system"
	"github.com/opendatacollection/rechtspraak-scraper/internal/config"
	collyfetcher "github.com/opendatacollection/rechtspraak-scraper/internal/fetcher/colly"
	"github.com/opendatacollection/rechtspraak-scraper/internal/hash/sha256"
	"github.com/opendatacollection/rechtspraak-scraper/internal/logging"
	"github.com/opendatacollection/rechtspraak-scraper/internal/metrics"
	"github.com/opendatacollection/rechtspraak-scraper/internal/policy/ratelimit"
	"github.com/opendatacollection/rechtspraak-scraper/internal/scraper"
	"github.com/opendatacollection/rechtspraak-scraper/internal/storage"
	"github.com/opendatacollection/rechtspraak-scraper/internal/storage/s3"
	"github.com/opendatacollection/rechtspraak-scraper/internal/store/postgres"
)

// App holds the shared, long-lived services for the scraper: the logger,
// the relational store, the blob store and the outbound HTTP machinery.
// It is initialized once at startup and passed to the components that
// need it, and it fails fast if any critical service cannot be reached.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *postgres.Store
	blobStore storage.Provider
	fetcher   scraper.Fetcher
	throttler scraper.Throttler
	hasher    scraper.Hasher
	clock     scraper.Clock
}

// New wires all services from the loaded configuration.
//
// The blob store is only dialed when raw storage is enabled; a deployment
// with store_xml=false needs no object store at all and gets the no-op
// provider instead.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	store, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	var blobStore storage.Provider
	if cfg.Scraper.StoreXML {
		logger.Info("using S3 blob storage",
			zap.String("endpoint", cfg.Storage.Endpoint),
			zap.String("bucket", cfg.Storage.Bucket))
		blobStore, err = s3.New(ctx, s3.Config{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Secure:    cfg.Storage.Secure,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("init blob storage: %w", err)
		}
	} else {
		logger.Info("raw XML storage disabled, documents will not be archived")
		blobStore = &storage.NoOpProvider{}
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		fetcher: collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.HTTPTimeout(),
		}),
		blobStore: blobStore,
		throttler: ratelimit.New(cfg.RequestInterval()),
		hasher:    sha256.New(),
		clock:     system.New(),
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the relational store.
func (a *App) Store() *postgres.Store { return a.store }

// BlobStore returns the raw document store.
func (a *App) BlobStore() storage.Provider { return a.blobStore }

// Fetcher returns the outbound HTTP fetcher.
func (a *App) Fetcher() scraper.Fetcher { return a.fetcher }

// Throttler returns the shared request rate limiter.
func (a *App) Throttler() scraper.Throttler { return a.throttler }

// Hasher returns the content digest implementation.
func (a *App) Hasher() scraper.Hasher { return a.hasher }

// Clock returns the wall clock.
func (a *App) Clock() scraper.Clock { return a.clock }

// Close releases all held resources. Syncing the logger last gives every
// shutdown message a chance to flush.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.store.Close()
	_ = a.logger.Sync()
}

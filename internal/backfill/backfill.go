// Package backfill re-archives raw XML for decisions that predate raw
// storage or were scraped with archiving disabled.
package backfill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/metrics"
	"github.com/opendatacollection/rechtspraak-scraper/internal/scraper"
	"github.com/opendatacollection/rechtspraak-scraper/internal/storage"
)

// Config controls Backfiller behavior.
type Config struct {
	ContentURL    string
	BatchSize     int
	MaxIterations int
}

// Backfiller walks decisions whose xml_path is NULL, refetches each
// document and writes it to the object store, then updates the decision row
// with the object key. Requests run behind the same throttler as the fetch
// phase so backfill and normal scraping share one rate budget.
type Backfiller struct {
	store     scraper.Store
	blobStore storage.Provider
	fetcher   scraper.Fetcher
	throttler scraper.Throttler
	hasher    scraper.Hasher
	clock     scraper.Clock
	cfg       Config
	logger    *zap.Logger
}

// Stats summarizes one backfill run.
type Stats struct {
	Iterations int
	Stored     int
	Failed     int
}

// New constructs a Backfiller.
func New(
	store scraper.Store,
	blobStore storage.Provider,
	fetcher scraper.Fetcher,
	throttler scraper.Throttler,
	hasher scraper.Hasher,
	clock scraper.Clock,
	cfg Config,
	logger *zap.Logger,
) *Backfiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 1000
	}
	return &Backfiller{
		store:     store,
		blobStore: blobStore,
		fetcher:   fetcher,
		throttler: throttler,
		hasher:    hasher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes batches until every decision has a raw document or a batch
// stores nothing. The zero-progress stop matters: a decision whose fetch
// keeps failing would otherwise be re-claimed by every subsequent batch and
// the run would never terminate.
func (b *Backfiller) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for stats.Iterations < b.cfg.MaxIterations {
		stored, failed, err := b.processBatch(ctx)
		if err != nil {
			return stats, err
		}
		stats.Iterations++
		stats.Stored += stored
		stats.Failed += failed

		if stored == 0 {
			break
		}
	}

	b.logger.Info("backfill complete",
		zap.Int("iterations", stats.Iterations),
		zap.Int("stored", stats.Stored),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (b *Backfiller) processBatch(ctx context.Context) (stored, failed int, err error) {
	batch, err := b.store.DecisionsWithoutRaw(ctx, b.cfg.BatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("claim backfill batch: %w", err)
	}
	if len(batch) == 0 {
		return 0, 0, nil
	}

	b.logger.Info("backfilling batch", zap.Int("count", len(batch)))

	for _, decision := range batch {
		if err := b.throttler.Throttle(ctx); err != nil {
			return stored, failed, err
		}

		url := fmt.Sprintf("%s?id=%s", b.cfg.ContentURL, decision.ECLI)
		body, err := b.fetcher.Get(ctx, url)
		if err != nil {
			b.logger.Error("backfill fetch failed",
				zap.String("ecli", decision.ECLI), zap.Error(err))
			failed++
			continue
		}

		path := scraper.ObjectPath(decision.ECLI)
		if err := b.blobStore.Save(ctx, path, body); err != nil {
			return stored, failed, fmt.Errorf("store raw document %s: %w", decision.ECLI, err)
		}

		decision.XMLPath = &path
		decision.ScrapedAt = b.clock.Now()
		if b.hasher != nil {
			digest, err := b.hasher.Hash(body)
			if err != nil {
				return stored, failed, fmt.Errorf("hash document %s: %w", decision.ECLI, err)
			}
			decision.RawSHA256 = digest
		}

		if err := b.store.InsertDecision(ctx, decision); err != nil {
			return stored, failed, fmt.Errorf("update decision %s: %w", decision.ECLI, err)
		}
		stored++
		metrics.IncRawStored()
	}
	return stored, failed, nil
}

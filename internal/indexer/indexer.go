// Package indexer implements the sitemap discovery phase.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/metrics"
	"github.com/opendatacollection/rechtspraak-scraper/internal/scraper"
)

// Config controls Indexer behavior.
type Config struct {
	SitemapURL string
	StartYear  int

	// Delay spaces out sitemap requests between windows.
	Delay time.Duration
}

// Indexer walks the sitemap feed in monthly windows and upserts every
// discovered identifier. Windows run strictly in chronological order so an
// interrupted run can be resumed by restarting from the start year.
type Indexer struct {
	cfg     Config
	fetcher scraper.Fetcher
	store   scraper.Store
	clock   scraper.Clock
	logger  *zap.Logger
}

// Stats summarizes one indexing run.
type Stats struct {
	Windows       int
	FailedWindows int
	Indexed       int
	Skipped       int
}

// New constructs an Indexer.
func New(cfg Config, fetcher scraper.Fetcher, store scraper.Store, clock scraper.Clock, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{cfg: cfg, fetcher: fetcher, store: store, clock: clock, logger: logger}
}

// Run processes every window from the start year through today.
//
// A failed window is logged, counted and skipped; the crawl continues with
// the next window so one bad response cannot abort full coverage. A store
// write failure is fatal for the phase, because silently dropping rows
// would corrupt the pending set.
func (ix *Indexer) Run(ctx context.Context) (Stats, error) {
	now := ix.clock.Now()
	windows := scraper.MonthlyWindows(ix.cfg.StartYear, now)

	stats := Stats{Windows: len(windows)}
	ix.logger.Info("indexing sitemap windows",
		zap.Int("start_year", ix.cfg.StartYear),
		zap.Int("windows", len(windows)))

	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("indexing interrupted: %w", err)
		}

		count, skipped, failed, err := ix.processWindow(ctx, window)
		if err != nil {
			return stats, err
		}
		stats.Indexed += count
		stats.Skipped += skipped
		if failed {
			stats.FailedWindows++
		}

		ix.logger.Info("window indexed",
			zap.String("from", window.FromDate()),
			zap.String("to", window.ToDate()),
			zap.Int("count", count),
			zap.String("progress", fmt.Sprintf("%d/%d", i+1, len(windows))))

		if ix.cfg.Delay > 0 && i < len(windows)-1 {
			select {
			case <-ctx.Done():
				return stats, fmt.Errorf("indexing interrupted: %w", ctx.Err())
			case <-time.After(ix.cfg.Delay):
			}
		}
	}

	ix.logger.Info("indexing complete",
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed_windows", stats.FailedWindows))
	return stats, nil
}

// processWindow fetches and upserts one window. The returned count is the
// number of identifier rows written; network and parse failures are
// contained here and reported via the failed flag.
func (ix *Indexer) processWindow(ctx context.Context, window scraper.Window) (count, skipped int, failed bool, err error) {
	url := fmt.Sprintf("%s?from=%s&to=%s", ix.cfg.SitemapURL, window.FromDate(), window.ToDate())

	body, err := ix.fetcher.Get(ctx, url)
	if err != nil {
		ix.logger.Error("sitemap window fetch failed",
			zap.String("url", url), zap.Error(err))
		metrics.ObserveWindow("failed")
		return 0, 0, true, nil
	}

	entries, skippedEntries, err := scraper.ParseSitemap(body)
	if err != nil {
		ix.logger.Error("sitemap window parse failed",
			zap.String("url", url), zap.Error(err))
		metrics.ObserveWindow("failed")
		return 0, 0, true, nil
	}
	if len(entries) == 0 {
		metrics.ObserveWindow("ok")
		return 0, skippedEntries, false, nil
	}

	now := ix.clock.Now()
	recs := make([]scraper.IdentifierRecord, 0, len(entries))
	for _, entry := range entries {
		lastModified := entry.LastModified
		if lastModified.IsZero() {
			lastModified = now
		}
		recs = append(recs, scraper.IdentifierRecord{
			ECLI:         entry.ECLI,
			FirstSeen:    now,
			LastModified: lastModified,
			SourceURL:    entry.URL,
		})
	}

	written, err := ix.store.UpsertIdentifiers(ctx, recs)
	if err != nil {
		return 0, skippedEntries, false, fmt.Errorf("upsert window %s: %w", window.FromDate(), err)
	}
	metrics.ObserveWindow("ok")
	metrics.AddIndexed(written)
	return written, skippedEntries, false, nil
}

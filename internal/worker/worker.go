// Package worker implements the content retrieval phase.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/metrics"
	"github.com/opendatacollection/rechtspraak-scraper/internal/scraper"
	"github.com/opendatacollection/rechtspraak-scraper/internal/storage"
)

// Config controls Worker behavior.
type Config struct {
	ContentURL    string
	BatchSize     int
	MaxIterations int

	// StoreXML toggles archiving of the raw document alongside the
	// normalized record.
	StoreXML bool
}

// Worker drains the pending set in batches, converting each pending
// identifier into a decision row and an archived raw document.
//
// One content request is in flight at a time, serialized behind the
// throttler; there is no intra-run parallelism. Duplicate work across
// separate concurrent runs is tolerated because every write is an
// ECLI-keyed last-write-wins upsert.
type Worker struct {
	store     scraper.Store
	blobStore storage.Provider
	fetcher   scraper.Fetcher
	throttler scraper.Throttler
	hasher    scraper.Hasher
	clock     scraper.Clock
	cfg       Config
	logger    *zap.Logger
}

// Stats summarizes one fetch run.
type Stats struct {
	Iterations int
	Fetched    int
	Failed     int
	Remaining  int64
}

// New constructs a Worker.
func New(
	store scraper.Store,
	blobStore storage.Provider,
	fetcher scraper.Fetcher,
	throttler scraper.Throttler,
	hasher scraper.Hasher,
	clock scraper.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if blobStore == nil {
		blobStore = &storage.NoOpProvider{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 1000
	}
	return &Worker{
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

// Run calls FetchBatch until the pending set is empty, a batch makes no
// progress, or the iteration guard trips. A batch with zero successes ends
// the run rather than re-claiming the same failing identifiers, which would
// amount to an in-run retry; failed identifiers stay pending for the next
// invocation.
func (w *Worker) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for stats.Iterations < w.cfg.MaxIterations {
		fetched, failed, err := w.FetchBatch(ctx)
		if err != nil {
			return stats, err
		}
		stats.Iterations++
		stats.Fetched += fetched
		stats.Failed += failed

		if fetched == 0 {
			if failed > 0 {
				w.logger.Warn("batch made no progress, deferring retries to the next run",
					zap.Int("failed", failed))
			}
			break
		}
	}

	remaining, err := w.store.CountPending(ctx)
	if err != nil {
		return stats, fmt.Errorf("count pending: %w", err)
	}
	stats.Remaining = remaining
	metrics.SetPending(remaining)

	w.logger.Info("fetch phase complete",
		zap.Int("iterations", stats.Iterations),
		zap.Int("fetched", stats.Fetched),
		zap.Int("failed", stats.Failed),
		zap.Int64("remaining", remaining))
	return stats, nil
}

// FetchBatch claims one batch of pending identifiers and processes them
// sequentially. A fetch or parse failure for one identifier is logged and
// counted; the identifier stays pending and the batch continues. A store or
// blob write failure aborts the batch, since dropping a write silently
// would break the pending-set invariant.
func (w *Worker) FetchBatch(ctx context.Context) (fetched, failed int, err error) {
	batch, err := w.store.PendingBatch(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("claim pending batch: %w", err)
	}
	if len(batch) == 0 {
		return 0, 0, nil
	}

	w.logger.Info("processing batch", zap.Int("count", len(batch)))

	for _, rec := range batch {
		stored, err := w.processIdentifier(ctx, rec)
		if err != nil {
			return fetched, failed, err
		}
		if stored {
			fetched++
			metrics.ObserveFetch("fetched")
		} else {
			failed++
			metrics.ObserveFetch("failed")
		}
	}
	return fetched, failed, nil
}

// processIdentifier handles a single pending ECLI. The returned error is
// reserved for batch-fatal conditions (canceled context, store or blob
// write failure); fetch and parse problems are contained here and reported
// as stored=false.
func (w *Worker) processIdentifier(ctx context.Context, rec scraper.IdentifierRecord) (stored bool, err error) {
	if err := w.throttler.Throttle(ctx); err != nil {
		return false, err
	}

	url := fmt.Sprintf("%s?id=%s", w.cfg.ContentURL, rec.ECLI)
	body, err := w.fetcher.Get(ctx, url)
	if err != nil {
		w.logger.Error("content fetch failed", zap.String("ecli", rec.ECLI), zap.Error(err))
		return false, nil
	}

	decision, err := scraper.ParseDocument(body)
	if err != nil {
		w.logger.Error("content parse failed", zap.String("ecli", rec.ECLI), zap.Error(err))
		return false, nil
	}
	if decision.ECLI == "" {
		decision.ECLI = rec.ECLI
	}
	decision.ContentURL = url
	decision.ScrapedAt = w.clock.Now()

	if w.hasher != nil {
		digest, err := w.hasher.Hash(body)
		if err != nil {
			return false, fmt.Errorf("hash document %s: %w", rec.ECLI, err)
		}
		decision.RawSHA256 = digest
	}

	if w.cfg.StoreXML {
		path := scraper.ObjectPath(rec.ECLI)
		if err := w.blobStore.Save(ctx, path, body); err != nil {
			return false, fmt.Errorf("store raw document %s: %w", rec.ECLI, err)
		}
		decision.XMLPath = &path
		metrics.IncRawStored()
	}

	if err := w.store.InsertDecision(ctx, *decision); err != nil {
		return false, fmt.Errorf("persist decision %s: %w", rec.ECLI, err)
	}
	return true, nil
}

// Package pipeline sequences the indexing and fetching phases of a scrape
// run.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/indexer"
	"github.com/opendatacollection/rechtspraak-scraper/internal/worker"
)

// Phase selects which part of the pipeline a run executes.
type Phase string

const (
	// PhaseIndex runs only sitemap discovery.
	PhaseIndex Phase = "index"
	// PhaseFetch runs only content retrieval of the pending set.
	PhaseFetch Phase = "fetch"
	// PhaseBoth runs discovery to completion, then retrieval.
	PhaseBoth Phase = "both"
)

// ParsePhase validates a phase name from the CLI. The empty string means
// the full pipeline.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseIndex, PhaseFetch, PhaseBoth:
		return Phase(s), nil
	case "":
		return PhaseBoth, nil
	default:
		return "", fmt.Errorf("unknown phase %q (expected index, fetch or both)", s)
	}
}

// IDGenerator mints the run identifier used to correlate log lines.
type IDGenerator interface {
	NewID() (string, error)
}

// Orchestrator runs the two phases in order. Indexing always completes
// before fetching starts, so the fetch phase sees the freshest possible
// pending set and the source never receives interleaved sitemap and
// content traffic.
type Orchestrator struct {
	indexer *indexer.Indexer
	worker  *worker.Worker
	idGen   IDGenerator
	logger  *zap.Logger
}

// New constructs an Orchestrator.
func New(ix *indexer.Indexer, w *worker.Worker, idGen IDGenerator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{indexer: ix, worker: w, idGen: idGen, logger: logger}
}

// Run executes the selected phase. An indexing failure aborts the run
// before any content request is made.
func (o *Orchestrator) Run(ctx context.Context, phase Phase) error {
	runID, err := o.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger := o.logger.With(zap.String("run_id", runID), zap.String("phase", string(phase)))
	logger.Info("scrape run starting")

	if phase == PhaseIndex || phase == PhaseBoth {
		stats, err := o.indexer.Run(ctx)
		if err != nil {
			return fmt.Errorf("index phase: %w", err)
		}
		logger.Info("index phase finished",
			zap.Int("windows", stats.Windows),
			zap.Int("failed_windows", stats.FailedWindows),
			zap.Int("indexed", stats.Indexed))
	}

	if phase == PhaseFetch || phase == PhaseBoth {
		stats, err := o.worker.Run(ctx)
		if err != nil {
			return fmt.Errorf("fetch phase: %w", err)
		}
		logger.Info("fetch phase finished",
			zap.Int("fetched", stats.Fetched),
			zap.Int("failed", stats.Failed),
			zap.Int64("remaining", stats.Remaining))
	}

	logger.Info("scrape run complete")
	return nil
}

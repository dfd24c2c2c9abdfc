package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/api"
	"github.com/opendatacollection/rechtspraak-scraper/internal/app"
	"github.com/opendatacollection/rechtspraak-scraper/internal/id/uuid"
	"github.com/opendatacollection/rechtspraak-scraper/internal/indexer"
	"github.com/opendatacollection/rechtspraak-scraper/internal/pipeline"
	"github.com/opendatacollection/rechtspraak-scraper/internal/worker"
)

// newScrapeCmd creates the 'scrape' subcommand, which runs the two-phase
// pipeline: sitemap discovery followed by content retrieval.
func newScrapeCmd() *cobra.Command {
	var phaseFlag string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run the scrape pipeline",
		Long: `Runs sitemap discovery and content retrieval. By default both phases
execute in order; --phase restricts the run to one of them. Either phase
can be interrupted and resumed, because discovery is idempotent and
retrieval only claims identifiers without a stored decision.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			phase, err := pipeline.ParsePhase(phaseFlag)
			if err != nil {
				return err
			}

			if appInstance.Config().Server.Enabled {
				startStatusServer(cmd.Context(), appInstance)
			}

			orch := buildOrchestrator(appInstance)
			if err := orch.Run(cmd.Context(), phase); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run pipeline: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&phaseFlag, "phase", "", "phase to run: index, fetch or both (default both)")
	return cmd
}

func buildOrchestrator(a *app.App) *pipeline.Orchestrator {
	cfg := a.Config()

	ix := indexer.New(
		indexer.Config{
			SitemapURL: cfg.Scraper.SitemapURL,
			StartYear:  cfg.Scraper.StartYear,
			Delay:      cfg.SitemapInterval(),
		},
		a.Fetcher(), a.Store(), a.Clock(), a.Logger())

	w := worker.New(
		a.Store(), a.BlobStore(), a.Fetcher(), a.Throttler(), a.Hasher(), a.Clock(),
		worker.Config{
			ContentURL:    cfg.Scraper.ContentURL,
			BatchSize:     cfg.Scraper.BatchSize,
			MaxIterations: cfg.Scraper.MaxIterations,
			StoreXML:      cfg.Scraper.StoreXML,
		},
		a.Logger())

	return pipeline.New(ix, w, uuid.New(), a.Logger())
}

// startStatusServer exposes /healthz, /metrics and /status for the
// duration of the run. The listener dies with the process; long-lived
// deployments use the 'serve' command instead.
func startStatusServer(ctx context.Context, a *app.App) {
	addr := fmt.Sprintf(":%d", a.Config().Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.NewServer(a.Store(), a.Logger()).Handler()}

	go func() {
		a.Logger().Info("status server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger().Error("status server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/backfill"
)

// newBackfillCmd creates the 'backfill' subcommand, which refetches and
// archives raw XML for decisions scraped before raw storage existed.
func newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Archive raw XML for decisions that are missing it",
		Long: `Walks the decisions table for rows without an archived raw document,
refetches each decision from the content endpoint and stores the XML in
the object store. Requires store_xml to be enabled.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			if !cfg.Scraper.StoreXML {
				return errors.New("backfill requires store_xml to be enabled")
			}

			b := backfill.New(
				appInstance.Store(),
				appInstance.BlobStore(),
				appInstance.Fetcher(),
				appInstance.Throttler(),
				appInstance.Hasher(),
				appInstance.Clock(),
				backfill.Config{
					ContentURL:    cfg.Scraper.ContentURL,
					BatchSize:     cfg.Scraper.BatchSize,
					MaxIterations: cfg.Scraper.MaxIterations,
				},
				appInstance.Logger())

			stats, err := b.Run(cmd.Context())
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run backfill: %w", err)
			}
			appInstance.Logger().Info("backfill finished",
				zap.Int("stored", stats.Stored),
				zap.Int("failed", stats.Failed))
			return nil
		},
	}
}

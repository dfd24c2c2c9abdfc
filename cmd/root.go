// Package cmd defines and implements the CLI commands for the scraper
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opendatacollection/rechtspraak-scraper/internal/app"
	"github.com/opendatacollection/rechtspraak-scraper/internal/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It is a variable so tests can replace
// it with a factory producing a fake container.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command. Service wiring
// happens in PersistentPreRunE, after flags are parsed but before any
// subcommand runs, so every subcommand finds a ready App in its context.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rechtspraak-scraper",
		Short: "Incremental scraper for Dutch court decisions",
		Long: `rechtspraak-scraper collects published Dutch court decisions (ECLI)
from rechtspraak.nl. It discovers identifiers through the sitemap feed,
fetches the decisions that have not been scraped yet, and archives both
the normalized metadata and the raw XML documents.`,

		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; environment variables apply regardless)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newBackfillCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// resolveApp retrieves the service container placed in the context by the
// root command's PersistentPreRunE hook.
func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the command
// context so an interrupted run stops at a phase boundary; both phases are
// resumable, so nothing is lost.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

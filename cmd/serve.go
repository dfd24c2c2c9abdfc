package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opendatacollection/rechtspraak-scraper/internal/api"
)

// newServeCmd creates the 'serve' subcommand, a long-running status and
// metrics listener for deployments that scrape on a schedule elsewhere.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the status and metrics HTTP API",

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			addr := fmt.Sprintf(":%d", appInstance.Config().Server.Port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(appInstance.Store(), appInstance.Logger()).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				appInstance.Logger().Info("status server listening", zap.String("addr", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			}
		},
	}
}

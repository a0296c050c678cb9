// Command snapshotctl computes transit snapshots outside the HTTP server:
// a single date for inspection, or a date range to fill the persistent tier.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/irfndi/astro-snapshot-go/internal/app"
	"github.com/irfndi/astro-snapshot-go/internal/config"
	"github.com/irfndi/astro-snapshot-go/internal/logging"
	"github.com/spf13/cobra"
)

// appFactory builds the snapshot pipeline; tests replace it.
type appFactory func(ctx context.Context) (*app.App, error)

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// Keep stdout clean for JSON output.
	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	logger.SetOutput(os.Stderr)
	return app.New(ctx, cfg, logger)
}

func newRootCmd(factory appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "snapshotctl",
		Short:         "Compute and precompute transit snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newComputeCmd(factory))
	root.AddCommand(newPrecomputeCmd(factory))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(loadApp).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "snapshotctl: %v\n", err)
		os.Exit(1)
	}
}

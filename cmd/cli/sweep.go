package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseloft/store-service/internal/catalog"
	"github.com/caseloft/store-service/internal/database"
	"github.com/caseloft/store-service/internal/discount"
)

var sweepConcurrency int

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one discount reconciliation sweep",
	Long: `Run a single discount reconciliation pass over the whole catalog and exit.
Useful after a bulk catalog import, or to verify discount windows without
waiting for the next scheduled run.`,
	Example: `  store-service sweep
  store-service sweep --concurrency 16`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().IntVar(&sweepConcurrency, "concurrency", 0, "Concurrent product writes (defaults to config)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	concurrency := cfg.Scheduler.SweepWriteConcurrency
	if sweepConcurrency > 0 {
		concurrency = sweepConcurrency
	}

	store := catalog.NewStore(database.Pool(), *logger)
	reconciler := discount.NewReconciler(store, *logger, discount.WithWriteConcurrency(concurrency))

	updated, err := reconciler.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("Sweep complete, %d products updated\n", updated)
	return nil
}

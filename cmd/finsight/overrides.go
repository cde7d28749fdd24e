package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/finsight/internal/worker"
	"github.com/spf13/cobra"
)

var pruneRetention time.Duration

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Maintain read and dismissed marks",
}

var overridesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop read and dismissed marks older than the retention",
	Long:  "Runs one retention pass immediately, the same pass the server runs every overrides.prune_interval.",
	Args:  cobra.NoArgs,
	RunE:  runOverridesPrune,
}

func init() {
	overridesPruneCmd.Flags().DurationVar(&pruneRetention, "retention", 0,
		"Retention to apply (defaults to overrides.retention)")
	overridesCmd.AddCommand(overridesPruneCmd)
}

func runOverridesPrune(cmd *cobra.Command, args []string) error {
	cfg, svc, err := openLocal()
	if err != nil {
		return err
	}
	defer svc.store.Close()

	retention := pruneRetention
	if retention == 0 {
		retention = time.Duration(cfg.Overrides.Retention)
	}
	if retention <= 0 {
		return fmt.Errorf("retention is disabled; pass --retention to prune anyway")
	}

	coordinator := worker.NewRetentionCoordinator(svc.overrides,
		time.Duration(cfg.Overrides.PruneInterval), retention, time.Now)
	removed := coordinator.RunOnce(context.Background())

	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d override entries older than %s\n", removed, retention)
	return nil
}

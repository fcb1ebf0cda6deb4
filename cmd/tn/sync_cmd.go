package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tasknest/tasknest/internal/engine"
	"github.com/tasknest/tasknest/internal/index"
)

var syncJSON bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass",
	Long: `Enumerate the vault, reconcile changes into the index, and print a
summary of what the pass observed: ingested, updated, and deleted files,
parse failures, and unresolved sync conflicts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := openVault(nil)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		eng := v.newEngine(nil)
		summary, events, state, err := eng.Run(ctx, engine.NewState())
		if err != nil {
			return err
		}

		db, err := index.Open(v.config.ResolveIndexPath(v.root))
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			return err
		}
		if err := db.Rebuild(ctx, state.Records()); err != nil {
			return err
		}

		if syncJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		printSummary(summary, events, state)
		return nil
	},
}

func printSummary(summary *engine.Summary, events []engine.Event, state *engine.State) {
	elapsed := summary.Phases.Enumerate + summary.Phases.Parse +
		summary.Phases.Index + summary.Phases.Query

	fmt.Printf("Sync pass %s (%v)\n", summary.PassID, elapsed.Round(time.Millisecond))
	fmt.Printf("  Tasks:     %d\n", summary.Total)
	fmt.Printf("  Ingested:  %d\n", summary.Ingested)
	fmt.Printf("  Updated:   %d\n", summary.Updated)
	fmt.Printf("  Deleted:   %d\n", summary.Deleted)
	if summary.Failed > 0 {
		fmt.Printf("  Failed:    %d\n", summary.Failed)
		for _, d := range state.Diagnostics() {
			fmt.Printf("    %s: %s\n", d.Path, d.Reason)
		}
	}
	if summary.Conflicts > 0 {
		fmt.Printf("  Conflicts: %d (run 'tn conflicts list')\n", summary.Conflicts)
	}
	for _, ev := range events {
		if batch, ok := ev.(engine.RateLimitedBatch); ok {
			fmt.Printf("  Burst: %d new files from source %q\n", len(batch.Paths), batch.Source)
		}
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "machine-readable summary")
	rootCmd.AddCommand(syncCmd)
}

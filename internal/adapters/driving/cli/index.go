package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
)

var (
	indexRebuild bool
	indexSource  string
	indexWatch   bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index local sources",
	Long: `Runs an incremental indexing pass over every configured local source.
Unchanged items are skipped and items that disappeared are removed.

With --watch, sources that support change notification are reindexed
whenever they change, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "discard the index and rebuild it")
	indexCmd.Flags().StringVar(&indexSource, "source", "", "index a single source")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep running and reindex on change")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := driving.IndexOptions{Rebuild: indexRebuild}
	var err error
	if indexSource != "" {
		var stats *domain.IndexStats
		stats, err = indexService.Index(ctx, indexSource, opts)
		if stats != nil {
			printStats(cmd, *stats)
		}
	} else {
		var all []domain.IndexStats
		all, err = indexService.IndexAll(ctx, opts)
		for _, s := range all {
			printStats(cmd, s)
		}
	}
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	if !indexWatch {
		return nil
	}

	cmd.Println("Watching for changes (Ctrl+C to stop)...")
	err = indexService.Watch(ctx, func(s domain.IndexStats) { printStats(cmd, s) })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// printStats writes one line per pass.
func printStats(cmd *cobra.Command, s domain.IndexStats) {
	cmd.Printf("%s: scanned=%d indexed=%d unchanged=%d invalid=%d removed=%d (%s)\n",
		s.Source, s.Scanned, s.Indexed, s.Unchanged, s.Invalid, s.Removed, s.Duration.Round(time.Millisecond))
}

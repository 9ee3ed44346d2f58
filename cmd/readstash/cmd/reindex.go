package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

func newReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the document database",
		Long: `Rebuild the search index from scratch.

The document database is the source of truth; reindexing repairs an
index that has drifted (for example after failed index writes) or was
deleted. Only one rebuild can run at a time.`,
		RunE: runReindex,
	}

	return cmd
}

func runReindex(cmd *cobra.Command, _ []string) error {
	lib, cfg, cleanup, err := openLibrary()
	if err != nil {
		return err
	}
	defer cleanup()

	// Guard against concurrent rebuilds from another process.
	lockPath := filepath.Join(cfg.Paths.DataDir, "reindex.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire reindex lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another reindex is already running (lock: %s)", lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	result, err := lib.Reindex(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d pages in %d batches\n",
		result.Pages, result.Batches)
	return nil
}

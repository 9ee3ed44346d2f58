package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newProgressCmd() *cobra.Command {
	var anchor int

	cmd := &cobra.Command{
		Use:   "progress <page-id> <percent>",
		Short: "Record reading progress for a saved page",
		Long: `Record how far a page has been read, as a percentage.

Progress only moves forward; a report lower than what is stored is
ignored. Reporting 0 resets the page to unread.

Examples:
  readstash progress 3f2a... 45
  readstash progress 3f2a... 45 --anchor 12
  readstash progress 3f2a... 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q", args[1])
			}
			return runProgress(cmd, args[0], percent, anchor)
		},
	}

	cmd.Flags().IntVar(&anchor, "anchor", 0, "Index of the topmost visible element")

	return cmd
}

func runProgress(cmd *cobra.Command, pageID string, percent float64, anchor int) error {
	lib, _, cleanup, err := openLibrary()
	if err != nil {
		return err
	}
	defer cleanup()

	item, err := lib.SaveReadingProgress(cmd.Context(), pageID, percent, anchor)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %.0f%% read (anchor %d)\n",
		item.ID, item.ReadingProgress, item.ReadingProgressAnchorIndex)
	return nil
}

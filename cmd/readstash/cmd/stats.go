package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, jsonOutput bool) error {
	lib, cfg, cleanup, err := openLibrary()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := lib.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"pages":        stats.Pages,
			"highlights":   stats.Highlights,
			"indexed_docs": stats.IndexedDocs,
			"data_dir":     cfg.Paths.DataDir,
		})
	}

	fmt.Fprintf(out, "Pages:        %d\n", stats.Pages)
	fmt.Fprintf(out, "Highlights:   %d\n", stats.Highlights)
	fmt.Fprintf(out, "Indexed docs: %d\n", stats.IndexedDocs)
	fmt.Fprintf(out, "Data dir:     %s\n", cfg.Paths.DataDir)

	if uint64(stats.Pages) != stats.IndexedDocs {
		fmt.Fprintln(out, "\nIndex and document counts differ; run 'readstash reindex' to repair.")
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/readstash/readstash/configs"
	"github.com/readstash/readstash/internal/config"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file and the library data directory",
		Long: `Initialize readstash: write the default config file and create the
data directory with an empty document database and search index.

Safe to run repeatedly; an existing library is left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := cmd.OutOrStdout()

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(out, "Config already exists at %s (use --force to overwrite)\n", path)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Wrote config to %s\n", path)
	}

	// Opening the library creates the database and index on first use.
	_, cfg, cleanup, err := openLibrary()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintf(out, "Library ready at %s\n", cfg.Paths.DataDir)
	return nil
}

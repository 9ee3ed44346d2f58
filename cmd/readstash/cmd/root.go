// Package cmd provides the CLI commands for readstash.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/readstash/readstash/internal/config"
	"github.com/readstash/readstash/internal/library"
	"github.com/readstash/readstash/internal/logging"
	"github.com/readstash/readstash/pkg/version"
)

// Global flags shared by all subcommands.
var (
	configPath string
	dataDir    string
	userID     string
	debugMode  bool
)

// NewRootCmd creates the root command for the readstash CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readstash",
		Short: "Save pages now, find them later",
		Long: `readstash is a local save-and-read-later library.

Pages are stored in a local document database and a full-text search
index. Saving the same URL twice updates the existing item instead of
creating a duplicate.

Run 'readstash init' once, then 'readstash save <url>' to get started.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("readstash version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.config/readstash/config.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.readstash)")
	cmd.PersistentFlags().StringVarP(&userID, "user", "u", "local", "User the library belongs to")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSaveCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newProgressCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves configuration from flags, file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// openLibrary loads config, starts file logging and opens the library.
// The returned cleanup closes both.
func openLibrary() (*library.Library, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, logCleanup, err := logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  cfg.LogPath(),
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup logging: %w", err)
	}
	slog.SetDefault(logger)

	lib, err := library.Open(cfg, logger)
	if err != nil {
		logCleanup()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := lib.Close(); err != nil {
			logger.Warn("close library", "error", err)
		}
		logCleanup()
	}
	return lib, cfg, cleanup, nil
}

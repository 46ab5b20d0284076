package cmd

import (
	"errors"
	"fmt"
	"os"

	"toot-importer/core/logger"
	"toot-importer/feature/migrate"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "toot-importer",
	Short: "Twitter archive to Mastodon importer",
	Long: `Toot Importer walks a Twitter archive export and interactively posts its
tweets to a Mastodon server, recording every decision in an operation log so
runs can be stopped and resumed safely.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting
		// We default to console format to match user expectations (CLI tool)
		// We use "debug" level configuration to get ISO8601 timestamps (DevConfig) instead of Epoch (ProdConfig)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			// Log the error with structured logger (Console encoding will make it pretty)
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}

		// An unrecognized interactive answer gets a distinct exit code so
		// wrappers can tell a usage mistake from a real failure.
		var unknown *migrate.UnknownInputError
		if errors.As(err, &unknown) {
			os.Exit(129)
		}
		os.Exit(1)
	}
}

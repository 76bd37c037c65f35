package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/parka-boundary/internal/logger"
	"github.com/oshokin/parka-boundary/internal/version"
)

// newRootCmd builds the command tree. Without a subcommand it prints help.
func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "parka-boundary",
		Short: "Package boundary data assets and describe them in a manifest.",
		Long: `Package boundary data assets for a release.

The build command reads assets.yaml, archives every declared directory into
a reproducible <name>.tar.gz, and writes manifest.json with the checksum,
size and extraction path of each archive. The manifest ships with the
release and is read at runtime by consumers of the data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(newBuildCmd(), newShowCmd(), newVerifyCmd())
	version.AttachCobraVersionCommand(rootCmd)

	return rootCmd
}

// Execute runs the parka-boundary CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

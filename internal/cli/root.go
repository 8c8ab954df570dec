// Package cli provides the catalog command-line interface: offline search,
// facet listing and export against a local catalog file.
package cli

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/dartsearch/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	logLevel  string
	logFormat string
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Search a DART product catalog file",
		Long: `catalog loads a DART product catalog (.xlsx or .csv) and searches it
the same way the web UI does: filters narrow the rows first, then every
keyword must appear in the description or in the item number.`,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Logs go to stderr so stdout stays machine-readable.
			logging.Setup(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text|json)")

	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newFacetsCommand())
	rootCmd.AddCommand(newExportCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

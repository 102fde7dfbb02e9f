// Package app wires the autofilter commands: serve, migrate, warm-cache and version.
package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/autofilter/internal/version"
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "autofilter",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Autocomplete multi-value filters for admin changelists",
		Long: `autofilter serves autocomplete endpoints and filtered changelists for the
record collections described in its configuration file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("config", "",
		"Path to configuration file (default: config/<ENV>.yaml)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newWarmCacheCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

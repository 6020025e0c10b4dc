// Package cmd wires up the auditlog CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/auditlog-go/cmd/migrate"
	"github.com/tphakala/auditlog-go/internal/conf"
	"github.com/tphakala/auditlog-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "auditlog",
		Short: "Audit log storage CLI",
	}

	rootCmd.PersistentFlags().BoolVar(&settings.Debug, "debug", settings.Debug, "Enable debug output")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(settings.Debug, settings.Log.Path)
	}

	rootCmd.AddCommand(migrate.Command(settings))

	return rootCmd
}

// Package commands implements the sharenoded CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time via -ldflags.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "sharenoded",
	Short: "Storage accounting core for a content-addressed share node",
	Long: `sharenoded runs the accounting core of a content-addressed storage
node: it accepts immutable share uploads into a local share tree, tracks
per-account leases in a lease database, and periodically reconciles the
two via a background crawler.

Use "sharenoded [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: looks for ./sharenode.yaml)")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// GetConfigFile returns the --config flag's value.
func GetConfigFile() string {
	return cfgFile
}

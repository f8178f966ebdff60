// Package commands implements the sharenodectl CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/public/tahoe-lafs/internal/config"
	"github.com/public/tahoe-lafs/pkg/leasedb"
	"github.com/public/tahoe-lafs/pkg/share"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sharenodectl",
	Short: "Operator CLI for a sharenoded instance",
	Long: `sharenodectl inspects and administers a sharenoded instance's local
state: its accounts and their usage, and the accounting crawler's
progress.

Use "sharenodectl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: looks for ./sharenode.yaml)")
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(crawlerCmd)
}

// openDB loads the shared config and opens the same lease database
// sharenoded uses, so sharenodectl always reflects live state.
func openDB() (*leasedb.DB, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := leasedb.Open(leasedb.Config{
		Driver: leasedb.Driver(cfg.LeaseDB.Driver),
		DSN:    cfg.LeaseDB.DSN,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open lease database: %w", err)
	}
	return db, cfg, nil
}

func openLayout(cfg *config.Config) share.Layout {
	return share.NewLayout(cfg.BaseDir)
}

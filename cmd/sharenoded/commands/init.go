package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/public/tahoe-lafs/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample sharenoded configuration file populated with defaults.

Examples:
  # Write to ./sharenode.yaml
  sharenoded init

  # Write to a custom path
  sharenoded init --config /etc/sharenode/config.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = "sharenode.yaml"
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("Edit it to set base_dir, then start the node with: sharenoded start")
	return nil
}

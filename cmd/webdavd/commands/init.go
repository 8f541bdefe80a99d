package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webdavd/webdavd/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample webdavd configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/webdavd/config.yaml. Use --config to pick another path.

Examples:
  # Initialize at the default location
  webdavd init

  # Initialize at a custom path
  webdavd init --config /etc/webdavd/config.yaml

  # Overwrite an existing file
  webdavd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file and point the shares at your directories")
	fmt.Println("  2. Add a user with: webdavd passwd <username>")
	fmt.Println("  3. Start the server with: webdavd serve")
	return nil
}

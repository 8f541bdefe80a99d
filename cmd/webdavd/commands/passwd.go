package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/webdavd/webdavd"
	"github.com/webdavd/webdavd/internal/config"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Set a user's password",
	Long: `Set the password for a WebDAV user.

The password is read interactively and stored as a bcrypt hash. When a
configuration file exists the user entry is written into it, otherwise the
hash is printed for manual use.

Examples:
  # Add or update a user in the config file
  webdavd passwd alice

  # Target a specific config file
  webdavd passwd alice --config /etc/webdavd/config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPasswd,
}

func runPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	password, err := promptPassword()
	if err != nil {
		return err
	}
	hash, err := webdavd.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if _, err := os.Stat(configPath); err != nil {
		fmt.Printf("No configuration file at %s, add this entry yourself:\n\n", configPath)
		fmt.Printf("auth:\n  users:\n    %s: %q\n", username, hash)
		return nil
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Users == nil {
		cfg.Auth.Users = make(map[string]string)
	}
	cfg.Auth.Users[username] = hash
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return err
	}

	fmt.Printf("Password for %q updated in %s\n", username, configPath)
	return nil
}

func promptPassword() (string, error) {
	prompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			return nil
		},
	}
	password, err := prompt.Run()
	if err != nil {
		return "", err
	}

	confirm := promptui.Prompt{
		Label: "Confirm password",
		Mask:  '*',
	}
	confirmed, err := confirm.Run()
	if err != nil {
		return "", err
	}
	if password != confirmed {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/scim-bridge/scim-bridge/internal/config"
	"github.com/scim-bridge/scim-bridge/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scim-bridge",
	Short: "scim-bridge turns SCIM provisioning requests into configuration repository changes",
	Long: `scim-bridge receives SCIM 2.0 user provisioning requests from an identity provider
and turns them into identity and group documents of a configuration-as-code repository,
proposed as pull requests for review.`,
	Args:         cobra.OnlyValidArgs,
	SilenceUsage: true,
}

var (
	configPath string // Path to the configuration directory
	devMode    bool

	cfg config.Config
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./etc/", "directory containing main.toml")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable dev mode")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration into cfg and initialises the logger.
// Offline commands pass local to skip the checks only the daemon needs.
func loadConfig(local bool) error {
	var err error

	if local {
		cfg, err = config.ReadLocalConfig(configPath)
	} else {
		cfg, err = config.ReadConfig(configPath)
	}

	if err != nil {
		return err
	}

	if devMode {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log)
}

func loadLocalConfig(_ *cobra.Command, _ []string) error {
	return loadConfig(true)
}

package app

import (
	"github.com/spf13/cobra"

	"github.com/scim-bridge/scim-bridge/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the SCIM endpoint",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig(false)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}

		return d.Run(cmd.Context())
	},
}

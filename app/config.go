package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scim-bridge/scim-bridge/internal/config"
)

func init() { //nolint: gochecknoinits
	configDumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "print JSON instead of TOML")

	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	dumpJSON bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	configDumpCmd = &cobra.Command{
		Use:     "dump",
		Short:   "Print the effective configuration with secrets masked",
		Args:    cobra.NoArgs,
		PreRunE: loadLocalConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			redacted := cfg.Redacted()

			dump := config.DumpConfig
			if dumpJSON {
				dump = config.DumpConfigJSON
			}

			out, err := dump(&redacted)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err //nolint:wrapcheck
		},
	}
)

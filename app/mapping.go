package app

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scim-bridge/scim-bridge/internal/store"
)

func init() { //nolint: gochecknoinits
	mappingCmd.PersistentFlags().StringVar(&mappingFile, "file", "", "mapping store file (default Store.MappingFile)")
	mappingListCmd.Flags().BoolVar(&mappingJSON, "json", false, "print JSON instead of a table")

	mappingCmd.AddCommand(mappingListCmd, mappingGetCmd)
	rootCmd.AddCommand(mappingCmd)
}

var (
	mappingFile string
	mappingJSON bool

	mappingCmd = &cobra.Command{
		Use:   "mapping",
		Short: "Inspect the external id mapping store",
	}

	mappingListCmd = &cobra.Command{
		Use:     "list",
		Short:   "List every recorded identity",
		Args:    cobra.NoArgs,
		PreRunE: loadLocalConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}

			return runMappingList(cmd.OutOrStdout(), s, mappingJSON)
		},
	}

	mappingGetCmd = &cobra.Command{
		Use:     "get <external-id>",
		Short:   "Print one recorded identity",
		Args:    cobra.ExactArgs(1),
		PreRunE: loadLocalConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}

			return runMappingGet(cmd.OutOrStdout(), s, args[0])
		},
	}
)

func openStore() (*store.Store, error) {
	path := mappingFile
	if path == "" {
		path = cfg.Store.MappingFile
	}

	return store.New(path) //nolint:wrapcheck
}

func runMappingList(out io.Writer, s *store.Store, asJSON bool) error {
	records, err := s.List()
	if err != nil {
		return err //nolint:wrapcheck
	}

	if asJSON {
		return printJSON(out, records)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EXTERNAL ID\tDISPLAY NAME\tFILENAME\tACTIVE") //nolint:errcheck

	for _, r := range records {
		active := "true"
		if v, ok := r.Attributes["active"].(bool); ok && !v {
			active = "false"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ExternalID, r.DisplayName, r.Filename, active) //nolint:errcheck
	}

	return w.Flush() //nolint:wrapcheck
}

func runMappingGet(out io.Writer, s *store.Store, externalID string) error {
	r, err := s.Get(externalID)
	if err != nil {
		return err //nolint:wrapcheck
	}

	return printJSON(out, r)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(v) //nolint:wrapcheck
}

package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scim-bridge/scim-bridge/internal/daemon"
	"github.com/scim-bridge/scim-bridge/internal/identity"
)

func init() { //nolint: gochecknoinits
	renderCmd.Flags().StringVar(&renderEvent.ExternalID, "external-id", "", "identity provider object id")
	renderCmd.Flags().StringVar(&renderEvent.PrincipalName, "user-name", "", "principal name (UPN)")
	renderCmd.Flags().StringVar(&renderEvent.DisplayName, "display-name", "", "display name")
	renderCmd.Flags().StringSliceVar(&renderEvent.Emails, "email", nil, "email, the first one is primary")
	renderCmd.Flags().StringVar(&renderEvent.Title, "title", "", "job title, mapped to the role")
	renderCmd.Flags().StringVar(&renderEvent.Department, "department", "", "department, mapped to the team")
	renderCmd.Flags().BoolVar(&renderInactive, "inactive", false, "render a deactivated identity")

	_ = renderCmd.MarkFlagRequired("user-name")

	rootCmd.AddCommand(renderCmd)
}

var (
	renderEvent    identity.Event
	renderInactive bool

	renderCmd = &cobra.Command{
		Use:     "render",
		Short:   "Print the identity document the bridge would write for a user",
		PreRunE: loadLocalConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderEvent.Active = !renderInactive

			return runRender(cmd.OutOrStdout(), identity.NewBuilder(daemon.IdentityConfig(&cfg)), renderEvent)
		},
	}
)

func runRender(out io.Writer, b *identity.Builder, ev identity.Event) error {
	filename, doc := b.Build(ev)

	data, err := doc.Marshal()
	if err != nil {
		return err //nolint:wrapcheck
	}

	_, err = fmt.Fprintf(out, "# %s\n%s", filename, data)

	return err //nolint:wrapcheck
}

package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scim-bridge/scim-bridge/internal/daemon"
	"github.com/scim-bridge/scim-bridge/internal/groups"
)

func init() { //nolint: gochecknoinits
	groupsCmd.Flags().StringVar(&groupsRepo, "repo", "", "repository checkout (default Git.CloneDir)")

	rootCmd.AddCommand(groupsCmd)
}

var (
	groupsRepo string

	groupsCmd = &cobra.Command{
		Use:     "groups",
		Short:   "List the group documents of a checkout with their synced members",
		PreRunE: loadLocalConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := groups.New(repoDir(groupsRepo), daemon.GroupsConfig(&cfg))

			return runGroups(cmd.OutOrStdout(), r)
		},
	}
)

func runGroups(out io.Writer, r *groups.Reconciler) error {
	all, err := r.Groups()
	if err != nil {
		return err //nolint:wrapcheck
	}

	for _, g := range all {
		fmt.Fprintf(out, "%s (%d)\n", g.Name, len(g.EntraIDHumanIdentities)) //nolint:errcheck

		for _, m := range g.EntraIDHumanIdentities {
			fmt.Fprintf(out, "  - %s\n", m) //nolint:errcheck
		}
	}

	return nil
}

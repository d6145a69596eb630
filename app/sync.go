package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scim-bridge/scim-bridge/internal/daemon"
	"github.com/scim-bridge/scim-bridge/internal/groups"
)

func init() { //nolint: gochecknoinits
	syncCmd.Flags().StringVar(&syncRepo, "repo", "", "repository checkout (default Git.CloneDir)")
	syncCmd.Flags().StringVar(&syncName, "name", "", "display name of the principal")
	syncCmd.Flags().StringSliceVar(&syncGroups, "group", nil, "target group, repeatable; the principal leaves every other group")
	syncCmd.Flags().BoolVar(&syncRemoveAll, "remove-all", false, "remove the principal from every group")

	_ = syncCmd.MarkFlagRequired("name")
	syncCmd.MarkFlagsOneRequired("group", "remove-all")
	syncCmd.MarkFlagsMutuallyExclusive("group", "remove-all")

	rootCmd.AddCommand(syncCmd)
}

var (
	syncRepo      string
	syncName      string
	syncGroups    []string
	syncRemoveAll bool

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the group memberships of one principal in a local checkout",
		Long: `sync converges the group documents of a local checkout to the given target groups
of one principal and prints the changed files. Nothing is committed.`,
		PreRunE: loadLocalConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := groups.New(repoDir(syncRepo), daemon.GroupsConfig(&cfg))

			return runSync(cmd.OutOrStdout(), r, syncName, syncGroups, syncRemoveAll)
		},
	}
)

func runSync(out io.Writer, r *groups.Reconciler, name string, targets []string, removeAll bool) error {
	var (
		paths []string
		err   error
	)

	if removeAll {
		paths, err = r.RemoveEverywhere(name)
	} else {
		paths, err = r.Sync(name, targets)
	}

	for _, p := range paths {
		fmt.Fprintln(out, p) //nolint:errcheck
	}

	return err //nolint:wrapcheck
}

func repoDir(flag string) string {
	if flag != "" {
		return flag
	}

	return cfg.Git.CloneDir
}

package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scim-bridge/scim-bridge/internal/auth"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(hashTokenCmd)
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token [token]",
	Short: "Print the argon2id hash of a bearer token for SCIM.BearerTokenHash",
	Long: `hash-token hashes the given token, or the first line of stdin when no
argument is given, so that only the hash has to be stored in the configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHashToken(cmd.OutOrStdout(), cmd.InOrStdin(), args)
	},
}

func runHashToken(out io.Writer, in io.Reader, args []string) error {
	var token string

	if len(args) == 1 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "failed to read token")
		}

		token = line
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return auth.ErrMissingToken
	}

	hash, err := auth.HashToken(token)
	if err != nil {
		return err //nolint:wrapcheck
	}

	_, err = fmt.Fprintln(out, hash)

	return err //nolint:wrapcheck
}

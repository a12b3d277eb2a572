package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/server/auth"
	"github.com/spf13/cobra"
)

// NewTokenCommand mints a bearer token for local testing of the API.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <userId>",
		Short: "Mint a development JWT for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := rootOpts.Config
			if ttl <= 0 {
				ttl = c.TokenValidityDuration
			}
			token, err := auth.GenerateToken(args[0], []byte(c.SecretKey), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to the configured validity)")

	return cmd
}

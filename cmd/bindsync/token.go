package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bindsync/internal/errors"
	"github.com/vango-dev/bindsync/pkg/rpcserver"
)

func tokenCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Issue a CSRF token signed with the server secret",
		Long: `Issue a CSRF token signed with server.csrfSecret. The token is accepted
by a server started with the same secret until it expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.Server.CSRFSecret == "" {
				return errors.New("C003").WithOp("server.csrfSecret").
					WithDetail("No CSRF secret is configured.").
					WithSuggestion("Set server.csrfSecret in the config file")
			}
			token, err := rpcserver.NewCSRF([]byte(g.cfg.Server.CSRFSecret), g.cfg.TokenTTL()).Issue()
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

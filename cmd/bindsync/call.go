package main

import "github.com/spf13/cobra"

func callCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "call METHOD [PARAMS]",
		Short: "Make one JSON-RPC call and print its result",
		Long: `Make one JSON-RPC call and print its result.

PARAMS is a JSON object. Application errors are reported with the
server's message; transport errors are prefixed with "SERVER: ".

Examples:
  bindsync call user.getName '{"id": 1}'
  bindsync call --endpoint http://localhost:8080/rpc ping`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args, 1)
			if err != nil {
				return err
			}
			var result any
			if err := g.client().Call(cmd.Context(), args[0], params, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

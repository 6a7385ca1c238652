package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/bindsync/pkg/remote"
)

func getCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get METHOD [PARAMS]",
		Short: "Read a remote value",
		Long: `Read a remote value: call METHOD with the static PARAMS and print the
value the server answers.

Examples:
  bindsync get user.setName '{"id": 1}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args, 1)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			l := startLoop(ctx)
			defer l.Stop()

			v := remote.NewValue[any](l, g.client(), args[0], params, nil, remote.Lazy())
			defer v.Close()

			if err := await(ctx, l, v, v.Refresh); err != nil {
				return err
			}
			return printJSON(v.Get())
		},
	}
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/bindsync/pkg/remote"
)

func setCmd(g *globals) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "set METHOD VALUE [PARAMS]",
		Short: "Write a remote value",
		Long: `Write a remote value: commit VALUE (JSON) through METHOD with the static
PARAMS, then print the canonical value the server answers.

Examples:
  bindsync set user.setName '"Bob"' '{"id": 1}'`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseJSON(args[1], "value")
			if err != nil {
				return err
			}
			params, err := parseParams(args, 2)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if value == nil {
				// A lazy source already holds nil, so Set would not commit.
				params["value"] = nil
				var result any
				if err := g.client().Call(ctx, args[0], params, &result); err != nil {
					return err
				}
				if !quiet {
					success("%s committed", args[0])
					return printJSON(result)
				}
				return nil
			}
			l := startLoop(ctx)
			defer l.Stop()

			v := remote.NewValue[any](l, g.client(), args[0], params, nil, remote.Lazy())
			defer v.Close()

			if err := await(ctx, l, v, func() { v.Set(value) }); err != nil {
				return err
			}
			if quiet {
				return nil
			}
			success("%s committed", args[0])
			return printJSON(v.Get())
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the canonical value")
	return cmd
}

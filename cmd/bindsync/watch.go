package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/bindsync/pkg/observe"
	"github.com/vango-dev/bindsync/pkg/push"
	"github.com/vango-dev/bindsync/pkg/remote"
)

func watchCmd(g *globals) *cobra.Command {
	var object bool

	cmd := &cobra.Command{
		Use:   "watch METHOD [PARAMS]",
		Short: "Print a remote value and every pushed change",
		Long: `Read a remote value, then follow the push feed and print the value
each time the server changes it. Stops on Ctrl-C or when the feed closes.

Examples:
  bindsync watch user.setName
  bindsync watch --object room.update '{"id": 7}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args, 1)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, g, args[0], params, object)
		},
	}

	cmd.Flags().BoolVar(&object, "object", false, "Treat the value as an object and print per-key changes")
	return cmd
}

func runWatch(ctx context.Context, g *globals, method string, params map[string]any, object bool) error {
	l := startLoop(ctx)
	defer l.Stop()

	feed, err := push.Dial(ctx, g.cfg.PushURL(), push.WithCSRFToken(g.cfg.Client.CSRFToken))
	if err != nil {
		return err
	}
	defer feed.Close()
	info("following %s", g.cfg.PushURL())

	client := g.client()
	if object {
		o := remote.NewObject(l, client, method, params, false, remote.Lazy())
		defer o.Close()
		if err := await(ctx, l, o, o.Refresh); err != nil {
			return err
		}
		printJSON(o.Snapshot())
		o.ObserveMap(func(e observe.MapEvent[any]) {
			if e.Deleted {
				printJSON(map[string]any{e.Key: nil})
				return
			}
			printJSON(map[string]any{e.Key: e.Value})
		})
		feed.Register(method, o)
	} else {
		v := remote.NewValue[any](l, client, method, params, nil, remote.Lazy())
		defer v.Close()
		if err := await(ctx, l, v, v.Refresh); err != nil {
			return err
		}
		printJSON(v.Get())
		v.Observe(func(x any) { printJSON(x) })
		feed.Register(method, v)
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		select {
		case <-feed.Done():
			info("push feed closed")
		case <-ectx.Done():
		}
		return nil
	})
	return eg.Wait()
}

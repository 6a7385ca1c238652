package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bindsync/internal/errors"
	"github.com/vango-dev/bindsync/pkg/rpcserver"
	"github.com/vango-dev/bindsync/pkg/snapshot"
)

type serveOptions struct {
	addr    string
	values  []string
	objects []string
}

func serveCmd(g *globals) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve documents over JSON-RPC with push updates",
		Long: `Serve a reference JSON-RPC 1.1 endpoint backed by named documents.

Each --value binds a method to a scalar document; each --object binds a
method to an object document, optionally naming the params that select
the object and are not stored. Commits are pushed to /push subscribers
and persisted to the configured snapshot store.

Examples:
  bindsync serve --value user.setName=name
  bindsync serve --object room.update=room:id --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringArrayVar(&opts.values, "value", nil, "Bind METHOD=DOC as a scalar document (repeatable)")
	cmd.Flags().StringArrayVar(&opts.objects, "object", nil, "Bind METHOD=DOC[:STATIC,...] as an object document (repeatable)")

	return cmd
}

func runServe(ctx context.Context, g *globals, opts *serveOptions) error {
	cfg := g.cfg
	store, err := snapshot.Open(ctx, snapshot.Options{
		Kind:   cfg.Snapshot.Store,
		Path:   cfg.Snapshot.Path,
		Bucket: cfg.Snapshot.Bucket,
		Prefix: cfg.Snapshot.Prefix,
		Region: cfg.Snapshot.Region,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	serverOpts := []rpcserver.Option{
		rpcserver.WithCSRFSecret([]byte(cfg.Server.CSRFSecret), cfg.TokenTTL()),
		rpcserver.WithStore(store, cfg.Debounce()),
	}
	if !cfg.Server.Metrics {
		serverOpts = append(serverOpts, rpcserver.WithoutMetricsRoute())
	}
	srv := rpcserver.New(serverOpts...)

	if err := bindDocuments(srv, opts); err != nil {
		return err
	}
	if len(srv.Methods()) == 0 {
		return errors.New("X001").WithDetail("Nothing to serve.").
			WithSuggestion("Bind at least one method with --value or --object")
	}
	if err := srv.Restore(ctx); err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	success("Serving %s on %s", strings.Join(srv.Methods(), ", "), addr)
	if cfg.Server.CSRFSecret != "" {
		info("CSRF tokens required; fetch one from /csrf")
	}
	info("Snapshot store: %s", cfg.Snapshot.Store)

	return srv.ListenAndServe(ctx, addr, grace(cfg.Timeout()))
}

// bindDocuments registers the --value and --object bindings.
func bindDocuments(srv *rpcserver.Server, opts *serveOptions) error {
	for _, arg := range opts.values {
		method, doc, ok := strings.Cut(arg, "=")
		if !ok || method == "" || doc == "" {
			return badBinding("--value", arg)
		}
		srv.Value(method, doc)
	}
	for _, arg := range opts.objects {
		method, rest, ok := strings.Cut(arg, "=")
		if !ok || method == "" || rest == "" {
			return badBinding("--object", arg)
		}
		doc, statics, _ := strings.Cut(rest, ":")
		if doc == "" {
			return badBinding("--object", arg)
		}
		var static []string
		for _, s := range strings.Split(statics, ",") {
			if s = strings.TrimSpace(s); s != "" {
				static = append(static, s)
			}
		}
		srv.Object(method, doc, static...)
	}
	return nil
}

func badBinding(flag, arg string) error {
	return errors.New("X001").WithOp(flag + " " + arg).
		WithSuggestion("Use METHOD=DOC, for example user.setName=name")
}

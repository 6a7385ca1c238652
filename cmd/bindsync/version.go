package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bindsync/pkg/push"
	"github.com/vango-dev/bindsync/pkg/transport"
)

// wireDeps are the modules whose versions decide wire compatibility.
var wireDeps = []string{
	"github.com/gorilla/websocket",
	"github.com/sourcegraph/jsonrpc2",
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and protocol information",
		Long: `Print the bindsync version, the protocols it speaks, and the versions
of the modules it was built with.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Println(version)
				return
			}
			fmt.Print(versionInfo())
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}

// versionInfo renders the build and protocol summary.
func versionInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bindsync %s (%s, %s)\n", version, commit, date)

	module, goVersion := "github.com/vango-dev/bindsync", "unknown"
	deps := map[string]string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Path != "" {
			module = info.Main.Path
		}
		goVersion = info.GoVersion
		for _, d := range info.Deps {
			deps[d.Path] = d.Version
		}
	}
	fmt.Fprintf(&b, "  module:    %s\n", module)
	fmt.Fprintf(&b, "  go:        %s\n", goVersion)
	fmt.Fprintf(&b, "  rpc:       JSON-RPC %s over HTTP POST (%s header)\n", transport.Version, transport.CSRFHeader)
	fmt.Fprintf(&b, "  push:      JSON-RPC 2.0 %q notifications over WebSocket\n", push.MethodChanged)
	for _, path := range wireDeps {
		v, ok := deps[path]
		if !ok {
			v = "(not in build info)"
		}
		fmt.Fprintf(&b, "  %-10s %s\n", path[strings.LastIndex(path, "/")+1:]+":", v)
	}
	return b.String()
}

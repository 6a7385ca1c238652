package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/bindsync/internal/config"
	"github.com/vango-dev/bindsync/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globals holds the persistent flags and the config they resolve to.
type globals struct {
	configPath string
	endpoint   string
	csrfToken  string
	timeout    string
	logLevel   string

	cfg *config.Config
}

var colors = true

func main() {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "bindsync",
		Short: "Bind local state to JSON-RPC endpoints",
		Long: `bindsync reads, writes and watches values served over JSON-RPC 1.1,
and serves a reference endpoint with push updates.

Configuration is read from bindsync.json, bindsync.toml or bindsync.yaml
in the working directory or one of its parents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Config file (default: nearest bindsync.{json,toml,yaml})")
	flags.StringVarP(&g.endpoint, "endpoint", "e", "", "JSON-RPC endpoint URL")
	flags.StringVar(&g.csrfToken, "csrf-token", "", "CSRF token sent with every call")
	flags.StringVar(&g.timeout, "timeout", "", "Per-call timeout (e.g. 5s)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		callCmd(g),
		getCmd(g),
		setCmd(g),
		watchCmd(g),
		serveCmd(g),
		tokenCmd(g),
		configCmd(g),
		versionCmd(),
	)

	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		colors = false
		errors.DisableColors()
	}

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// load resolves the config file and applies flag overrides.
func (g *globals) load() error {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case g.configPath != "":
		cfg, err = config.Load(g.configPath)
	default:
		cfg, err = config.LoadFromWorkingDir()
		if errors.Code(err) == "C001" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return err
	}

	if g.endpoint != "" {
		cfg.Client.Endpoint = g.endpoint
	}
	if g.csrfToken != "" {
		cfg.Client.CSRFToken = g.csrfToken
	}
	if g.timeout != "" {
		cfg.Client.Timeout = g.timeout
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg

	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// parseJSON decodes a command-line JSON argument.
func parseJSON(arg, what string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return nil, errors.New("X002").WithOp(what).Wrap(err)
	}
	return v, nil
}

// parseParams decodes an optional params object argument.
func parseParams(args []string, i int) (map[string]any, error) {
	if len(args) <= i {
		return map[string]any{}, nil
	}
	v, err := parseJSON(args[i], "params")
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("X002").WithOp("params").WithDetail("Params must be a JSON object")
	}
	return m, nil
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func paint(code, text string) string {
	if !colors {
		return text
	}
	return code + text + "\033[0m"
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", paint("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s\n", fmt.Sprintf(format, args...))
}

package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/bindsync/internal/errors"
)

const (
	// BaseName is the configuration file name without extension.
	BaseName = "bindsync"

	// ConfigFileName is the name of the default configuration file.
	ConfigFileName = BaseName + ".json"

	// DefaultEndpoint is the default JSON-RPC endpoint.
	DefaultEndpoint = "http://localhost:8080/rpc"

	// DefaultAddr is the default listen address of `bindsync serve`.
	DefaultAddr = ":8080"

	// DefaultTimeout is the default per-call timeout.
	DefaultTimeout = "10s"

	// DefaultTokenTTL is the default lifetime of issued CSRF tokens.
	DefaultTokenTTL = "12h"

	// DefaultDebounce is the default delay before a snapshot is written.
	DefaultDebounce = "250ms"

	// DefaultStore is the default snapshot store.
	DefaultStore = "memory"
)

// Extensions lists the supported config file extensions, in lookup order.
var Extensions = []string{".json", ".toml", ".yaml", ".yml"}

// Config represents the complete bindsync configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty"`

	// Client configures the JSON-RPC client.
	Client ClientConfig `json:"client" toml:"client" yaml:"client"`

	// Push configures the WebSocket push feed.
	Push PushConfig `json:"push" toml:"push" yaml:"push"`

	// Server configures `bindsync serve`.
	Server ServerConfig `json:"server" toml:"server" yaml:"server"`

	// Snapshot configures document persistence.
	Snapshot SnapshotConfig `json:"snapshot" toml:"snapshot" yaml:"snapshot"`

	// Log configures logging.
	Log LogConfig `json:"log" toml:"log" yaml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ClientConfig contains JSON-RPC client settings.
type ClientConfig struct {
	// Endpoint is the URL calls are POSTed to.
	Endpoint string `json:"endpoint,omitempty" toml:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Origin is reported in the JSON-RPC envelope. Defaults to Endpoint.
	Origin string `json:"origin,omitempty" toml:"origin,omitempty" yaml:"origin,omitempty"`

	// CSRFToken is sent as X-CSRF-Token on every call.
	CSRFToken string `json:"csrfToken,omitempty" toml:"csrfToken,omitempty" yaml:"csrfToken,omitempty"`

	// Timeout bounds every call (e.g., "10s").
	Timeout string `json:"timeout,omitempty" toml:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// PushConfig contains push feed settings.
type PushConfig struct {
	// URL is the WebSocket URL of the push feed. Derived from the client
	// endpoint when empty.
	URL string `json:"url,omitempty" toml:"url,omitempty" yaml:"url,omitempty"`
}

// ServerConfig contains settings for the reference server.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" toml:"addr,omitempty" yaml:"addr,omitempty"`

	// CSRFSecret signs CSRF tokens. Empty disables CSRF checks.
	CSRFSecret string `json:"csrfSecret,omitempty" toml:"csrfSecret,omitempty" yaml:"csrfSecret,omitempty"`

	// TokenTTL is the lifetime of issued CSRF tokens.
	TokenTTL string `json:"tokenTTL,omitempty" toml:"tokenTTL,omitempty" yaml:"tokenTTL,omitempty"`

	// Metrics enables the /metrics route.
	Metrics bool `json:"metrics,omitempty" toml:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// SnapshotConfig contains document persistence settings.
type SnapshotConfig struct {
	// Store is one of memory, bolt or s3.
	Store string `json:"store,omitempty" toml:"store,omitempty" yaml:"store,omitempty"`

	// Path is the bolt database file.
	Path string `json:"path,omitempty" toml:"path,omitempty" yaml:"path,omitempty"`

	// Bucket is the S3 bucket.
	Bucket string `json:"bucket,omitempty" toml:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is prepended to S3 object keys.
	Prefix string `json:"prefix,omitempty" toml:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Region overrides the AWS region.
	Region string `json:"region,omitempty" toml:"region,omitempty" yaml:"region,omitempty"`

	// Debounce delays snapshot writes so bursts of commits are saved once.
	Debounce string `json:"debounce,omitempty" toml:"debounce,omitempty" yaml:"debounce,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty" toml:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" toml:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  DefaultTimeout,
		},
		Server: ServerConfig{
			Addr:     DefaultAddr,
			TokenTTL: DefaultTokenTTL,
			Metrics:  true,
		},
		Snapshot: SnapshotConfig{
			Store:    DefaultStore,
			Debounce: DefaultDebounce,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromDir reads the first config file found in dir, trying each of
// Extensions in order.
func LoadFromDir(dir string) (*Config, error) {
	path, ok := find(dir)
	if !ok {
		return nil, errors.New("C001").
			WithDetail("No " + BaseName + ".{json,toml,yaml} found in " + dir).
			WithSuggestion("Run 'bindsync config init' or pass --config")
	}
	return Load(path)
}

// Load reads configuration from path. The format follows the extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C001").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("C002").Wrap(err)
	}

	cfg := New()
	if err := decode(path, data, cfg); err != nil {
		return nil, errors.New("C002").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file syntax")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func encode(path string, cfg *Config) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format its extension
// names.
func (c *Config) SaveTo(path string) error {
	data, err := encode(path, c)
	if err != nil {
		return errors.New("C004").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("C004").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = DefaultEndpoint
	}
	if c.Client.Timeout == "" {
		c.Client.Timeout = DefaultTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.TokenTTL == "" {
		c.Server.TokenTTL = DefaultTokenTTL
	}
	if c.Snapshot.Store == "" {
		c.Snapshot.Store = DefaultStore
	}
	if c.Snapshot.Debounce == "" {
		c.Snapshot.Debounce = DefaultDebounce
	}
	if c.Snapshot.Store == "bolt" && c.Snapshot.Path == "" {
		c.Snapshot.Path = BaseName + ".db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("client.endpoint", "must be an http or https URL")
	}
	if c.Push.URL != "" {
		u, err := url.Parse(c.Push.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return invalid("push.url", "must be a ws or wss URL")
		}
	}
	for field, d := range map[string]string{
		"client.timeout":    c.Client.Timeout,
		"server.tokenTTL":   c.Server.TokenTTL,
		"snapshot.debounce": c.Snapshot.Debounce,
	} {
		if v, err := time.ParseDuration(d); err != nil || v < 0 {
			return invalid(field, "must be a non-negative duration such as 10s")
		}
	}
	switch c.Snapshot.Store {
	case "memory", "bolt":
	case "s3":
		if c.Snapshot.Bucket == "" {
			return invalid("snapshot.bucket", "is required for the s3 store")
		}
	default:
		return errors.New("S003").WithOp(c.Snapshot.Store)
	}
	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		return invalid("log.level", "must be debug, info, warn or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format", "must be text or json")
	}
	return nil
}

func invalid(field, detail string) error {
	return errors.New("C003").WithOp(field).WithDetail(field + " " + detail)
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Timeout returns the client call timeout, or zero when unset or invalid.
func (c *Config) Timeout() time.Duration {
	return duration(c.Client.Timeout)
}

// TokenTTL returns the lifetime of issued CSRF tokens.
func (c *Config) TokenTTL() time.Duration {
	return duration(c.Server.TokenTTL)
}

// Debounce returns the snapshot write delay.
func (c *Config) Debounce() time.Duration {
	return duration(c.Snapshot.Debounce)
}

// LogLevel returns the configured slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	if l, ok := levels[strings.ToLower(c.Log.Level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// PushURL returns the push feed URL, derived from the client endpoint
// when not configured: http becomes ws, https becomes wss, and the last
// path element is replaced by "push".
func (c *Config) PushURL() string {
	if c.Push.URL != "" {
		return c.Push.URL
	}
	u, err := url.Parse(c.Client.Endpoint)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	dir := u.Path
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	}
	u.Path = dir + "/push"
	u.RawQuery = ""
	return u.String()
}

func duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func find(dir string) (string, bool) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, BaseName+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, ok := find(dir)
	return ok
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("C001").
				WithDetail("No " + BaseName + " config found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory or its nearest ancestor holding a config file.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return LoadFromDir(root)
}

package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/raysh454/mdinject/internal/fetcher"
	"github.com/raysh454/mdinject/internal/injector"
	"github.com/raysh454/mdinject/internal/webclient"
)

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// Config contains the runtime configuration shared by the CLI and the API
// server.
type Config struct {
	Server ServerConfig

	// StorageRoot is the directory holding registry.db.
	StorageRoot string

	LogLevel string

	// BatchConcurrency bounds InjectBatch.
	BatchConcurrency int

	WebClientCfg webclient.Config
	FetcherCfg   fetcher.Config
	InjectorCfg  injector.Config
}

// DefaultConfig returns a Config populated with development defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		StorageRoot:      "~/.config/mdinject",
		LogLevel:         "info",
		BatchConcurrency: 4,
		WebClientCfg: webclient.Config{
			Client:    webclient.ClientNetHTTP,
			Timeout:   30 * time.Second,
			UserAgent: "mdinject/1.0",
		},
		FetcherCfg: fetcher.Config{
			MaxConcurrency: 4,
			MaxBodyBytes:   4 << 20,
		},
	}
}

type ConfigOption struct {
	Key     string
	Default any
	Comment string
}

// GetConfigOptions returns every configuration key with its default.
func GetConfigOptions() []ConfigOption {
	d := DefaultConfig()
	return []ConfigOption{
		{Key: "server.addr", Default: d.Server.Addr, Comment: "HTTP listen address for the API server"},
		{Key: "server.allowed_origins", Default: d.Server.AllowedOrigins, Comment: "Origins allowed by CORS"},
		{Key: "storage_root", Default: d.StorageRoot, Comment: "Directory holding registry.db"},
		{Key: "log_level", Default: d.LogLevel, Comment: "debug, info, warn or error"},
		{Key: "batch_concurrency", Default: d.BatchConcurrency, Comment: "Parallel injections per batch"},
		{Key: "webclient.client", Default: string(d.WebClientCfg.Client), Comment: "Fetch backend: nethttp or chromedp"},
		{Key: "webclient.timeout", Default: d.WebClientCfg.Timeout, Comment: "Timeout for a single fetch"},
		{Key: "webclient.user_agent", Default: d.WebClientCfg.UserAgent, Comment: "User-Agent header sent with fetches"},
		{Key: "webclient.idle_after", Default: 2 * time.Second, Comment: "Network quiet period awaited by the chromedp backend"},
		{Key: "fetcher.max_concurrency", Default: d.FetcherCfg.MaxConcurrency, Comment: "Parallel source fetches ahead of a batch"},
		{Key: "fetcher.max_body_bytes", Default: d.FetcherCfg.MaxBodyBytes, Comment: "Largest accepted source document"},
		{Key: "injector.base_url", Default: "", Comment: "Base for relative source URLs when a page has none"},
		{Key: "injector.drop_tracking_params", Default: false, Comment: "Strip utm_* style parameters from source URLs"},
		{Key: "injector.empty_on_failure", Default: false, Comment: "Write an empty rendering when a fetch fails"},
	}
}

func applyDefaults(v *viper.Viper) {
	for _, o := range GetConfigOptions() {
		v.SetDefault(o.Key, o.Default)
	}
}

// LoadConfig resolves configuration with precedence: defaults < file < env.
// Environment variables use the MDINJECT_ prefix with dots replaced by
// underscores (MDINJECT_WEBCLIENT_CLIENT). A missing config file is not an
// error; a malformed one is.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "mdinject"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "mdinject"))
		}
		v.AddConfigPath(".")
	}

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("mdinject")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: splitList(v.GetStringSlice("server.allowed_origins")),
		},
		StorageRoot:      v.GetString("storage_root"),
		LogLevel:         v.GetString("log_level"),
		BatchConcurrency: v.GetInt("batch_concurrency"),
		WebClientCfg: webclient.Config{
			Client:    webclient.Client(v.GetString("webclient.client")),
			Timeout:   v.GetDuration("webclient.timeout"),
			UserAgent: v.GetString("webclient.user_agent"),
			IdleAfter: v.GetDuration("webclient.idle_after"),
		},
		FetcherCfg: fetcher.Config{
			MaxConcurrency: v.GetInt("fetcher.max_concurrency"),
			MaxBodyBytes:   v.GetInt64("fetcher.max_body_bytes"),
		},
		InjectorCfg: injector.Config{
			BaseURL:            v.GetString("injector.base_url"),
			DropTrackingParams: v.GetBool("injector.drop_tracking_params"),
			EmptyOnFailure:     v.GetBool("injector.empty_on_failure"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList accepts both real lists and a single comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.StorageRoot) == "" {
		problems = append(problems, "storage_root is required")
	}
	if c.BatchConcurrency <= 0 {
		problems = append(problems, "batch_concurrency must be greater than 0")
	}
	if c.FetcherCfg.MaxBodyBytes < 0 {
		problems = append(problems, "fetcher.max_body_bytes must not be negative")
	}
	known := false
	for _, name := range webclient.ListBackends() {
		if name == string(c.WebClientCfg.Client) {
			known = true
		}
	}
	if !known {
		problems = append(problems, fmt.Sprintf("unknown webclient.client %q", c.WebClientCfg.Client))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

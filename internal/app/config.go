package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/i-melnichenko/riak-wire/internal/raw"
)

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	// SampleRatio is the fraction of root traces kept, in [0, 1].
	SampleRatio float64
}

// Config contains runtime settings for a development node process.
type Config struct {
	NodeID   string
	LogLevel string

	GRPCAddr    string
	MetricsAddr string
	PprofAddr   string

	// SeedFile is a JSON array of store commands applied at startup.
	SeedFile string

	Tracing TracingConfig
}

// ClientConfig contains runtime settings for the CLI client.
type ClientConfig struct {
	Addrs    []string
	LogLevel string
	Timeout  time.Duration

	// MetricsAddr serves /metrics while a long-running subcommand is active.
	MetricsAddr string
	// HTTPPrefix is the resource prefix used when rendering Link headers,
	// always with a leading slash.
	HTTPPrefix string

	Tracing TracingConfig
}

// DefaultConfig returns a local-development node configuration.
func DefaultConfig() Config {
	return Config{
		NodeID:   "node-1",
		LogLevel: "info",
		GRPCAddr: ":8087",
		Tracing: TracingConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "riak-wire-node",
			SampleRatio: 1,
		},
	}
}

// DefaultClientConfig returns a local-development client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Addrs:      []string{"localhost:8087"},
		LogLevel:   "warn",
		Timeout:    5 * time.Second,
		HTTPPrefix: raw.DefaultPrefix,
		Tracing: TracingConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "riak-wire-client",
			SampleRatio: 1,
		},
	}
}

// LoadConfigFromEnv loads node config from environment variables.
//
// Supported vars:
// - APP_NODE_ID
// - APP_LOG_LEVEL (debug|info|warn|error)
// - APP_GRPC_ADDR
// - APP_METRICS_ADDR (empty = disabled)
// - APP_PPROF_ADDR (empty = disabled)
// - APP_SEED_FILE
// - APP_TRACING_ENABLED, APP_TRACING_ENDPOINT, APP_TRACING_SERVICE_NAME,
//   APP_TRACING_SAMPLE_RATIO
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := env("APP_NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := env("APP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := env("APP_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := env("APP_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := env("APP_PPROF_ADDR"); v != "" {
		cfg.PprofAddr = v
	}
	if v := env("APP_SEED_FILE"); v != "" {
		cfg.SeedFile = v
	}
	if err := loadTracingFromEnv(&cfg.Tracing); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadClientConfigFromEnv loads client config from environment variables.
// Command-line flags are applied on top by the caller.
//
// Supported vars:
// - APP_ADDRS (comma-separated node addresses)
// - APP_LOG_LEVEL (debug|info|warn|error)
// - APP_TIMEOUT (Go duration)
// - APP_METRICS_ADDR
// - APP_HTTP_PREFIX
// - APP_TRACING_ENABLED, APP_TRACING_ENDPOINT, APP_TRACING_SERVICE_NAME,
//   APP_TRACING_SAMPLE_RATIO
func LoadClientConfigFromEnv() (ClientConfig, error) {
	cfg := DefaultClientConfig()

	if v := env("APP_ADDRS"); v != "" {
		cfg.Addrs = splitCSV(v)
	}
	if v := env("APP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := env("APP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("app: invalid APP_TIMEOUT %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	if v := env("APP_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := env("APP_HTTP_PREFIX"); v != "" {
		cfg.HTTPPrefix = "/" + strings.Trim(v, "/")
	}
	if err := loadTracingFromEnv(&cfg.Tracing); err != nil {
		return ClientConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadTracingFromEnv(t *TracingConfig) error {
	if v := env("APP_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("app: invalid APP_TRACING_ENABLED %q: %w", v, err)
		}
		t.Enabled = enabled
	}
	if v := env("APP_TRACING_ENDPOINT"); v != "" {
		t.Endpoint = v
	}
	if v := env("APP_TRACING_SERVICE_NAME"); v != "" {
		t.ServiceName = v
	}
	if v := env("APP_TRACING_SAMPLE_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("app: invalid APP_TRACING_SAMPLE_RATIO %q: %w", v, err)
		}
		t.SampleRatio = ratio
	}
	return nil
}

// Validate checks that required settings are present and supported.
func (c Config) Validate() error {
	if strings.TrimSpace(c.NodeID) == "" {
		return fmt.Errorf("app: node id is required")
	}
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.GRPCAddr) == "" {
		return fmt.Errorf("app: grpc addr is required")
	}
	return c.Tracing.Validate()
}

// Validate checks that required settings are present and supported.
func (c ClientConfig) Validate() error {
	if len(c.Addrs) == 0 {
		return fmt.Errorf("app: at least one node address is required")
	}
	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("app: timeout must be positive, got %s", c.Timeout)
	}
	return c.Tracing.Validate()
}

// Validate checks tracing settings when tracing is enabled.
func (t TracingConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return fmt.Errorf("app: tracing endpoint is required when tracing is enabled")
	}
	if strings.TrimSpace(t.ServiceName) == "" {
		return fmt.Errorf("app: tracing service name is required when tracing is enabled")
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("app: tracing sample ratio must be within [0, 1], got %v", t.SampleRatio)
	}
	return nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("app: unsupported log level %q", level)
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// SplitCSV splits a comma-separated list, dropping empty entries.
func SplitCSV(raw string) []string {
	return splitCSV(raw)
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

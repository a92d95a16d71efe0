// Package config loads and validates the modelwire configuration: YAML file,
// environment overrides, and encrypted secret handling.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Endpoint EndpointConfig    `yaml:"endpoint"`
	Loop     LoopConfig        `yaml:"loop"`
	History  HistoryConfig     `yaml:"history"`
	MCP      []MCPServerConfig `yaml:"mcp,omitempty"`
	Logger   LoggerConfig      `yaml:"logger"`
	Tracer   TracerConfig      `yaml:"tracer"`
}

// MCPServerConfig describes one MCP server whose tools are exposed as
// callables.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // stdio or http
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	URL       string            `yaml:"url,omitempty"`
}

// EndpointConfig holds settings for the interactions API endpoint.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
	// APIKey may be a plaintext key or an "enc:" prefixed encrypted value
	// decrypted with MODELWIRE_CONFIG_KEY.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// Strict makes the decoder reject unrecognized wire tags instead of
	// preserving them.
	Strict bool `yaml:"strict"`

	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`

	Pool           PoolConfig           `yaml:"pool"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
}

// PoolConfig configures HTTP connection pooling.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CircuitBreakerConfig configures the endpoint circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	// If 0, failures never reset until the circuit opens.
	Interval time.Duration `yaml:"interval"`
}

// RateLimitConfig configures the client-side request rate cap.
// RequestsPerSecond <= 0 disables the cap.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoopConfig holds auto-function loop settings.
type LoopConfig struct {
	// MaxIterations bounds the model-call/tool-execution cycle.
	MaxIterations int `yaml:"max_iterations"`
	// MaxContextTokens is the estimated token ceiling checked before each
	// submission. 0 disables the guard.
	MaxContextTokens int `yaml:"max_context_tokens"`
	// UseServerState sends only new turns and chains interactions by ID
	// instead of resending the whole conversation.
	UseServerState bool `yaml:"use_server_state"`
	// ValidateArguments checks function-call arguments against the declared
	// JSON schema before invoking.
	ValidateArguments bool `yaml:"validate_arguments"`
}

// HistoryConfig holds transcript persistence settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // sqlite database file
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout or noop
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			ConnTimeout: 30 * time.Second,
			RespTimeout: 120 * time.Second,
		},
		Loop: LoopConfig{
			MaxIterations: 10,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "modelwire.db",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts
// secrets. A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := validatePermissions(path); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	passphrase := os.Getenv("MODELWIRE_CONFIG_KEY")
	if passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps MODELWIRE_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODELWIRE_BASE_URL"); v != "" {
		cfg.Endpoint.BaseURL = v
	}
	if v := os.Getenv("MODELWIRE_API_KEY"); v != "" {
		cfg.Endpoint.APIKey = v
	}
	if v := os.Getenv("MODELWIRE_MODEL"); v != "" {
		cfg.Endpoint.Model = v
	}
	if v := os.Getenv("MODELWIRE_STRICT"); v == "true" {
		cfg.Endpoint.Strict = true
	}
	if v := os.Getenv("MODELWIRE_LOOP_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Loop.MaxIterations = n
		}
	}
	if v := os.Getenv("MODELWIRE_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("MODELWIRE_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("MODELWIRE_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("MODELWIRE_HISTORY_PATH"); v != "" {
		cfg.History.Enabled = true
		cfg.History.Path = v
	}
}

// Validate checks cross-field constraints not expressible in the YAML shape.
func Validate(cfg *Config) error {
	if cfg.Loop.MaxIterations <= 0 {
		return fmt.Errorf("loop.max_iterations must be positive, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.MaxContextTokens < 0 {
		return fmt.Errorf("loop.max_context_tokens must not be negative, got %d", cfg.Loop.MaxContextTokens)
	}
	if cfg.Endpoint.BaseURL != "" && !strings.HasPrefix(cfg.Endpoint.BaseURL, "http://") && !strings.HasPrefix(cfg.Endpoint.BaseURL, "https://") {
		return fmt.Errorf("endpoint.base_url must be an http(s) URL, got %q", cfg.Endpoint.BaseURL)
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history.path required when history is enabled")
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("tracer.exporter must be noop or stdout, got %q", cfg.Tracer.Exporter)
	}
	for _, srv := range cfg.MCP {
		switch srv.Transport {
		case "stdio":
			if srv.Command == "" {
				return fmt.Errorf("mcp server %q: command required for stdio transport", srv.Name)
			}
		case "http":
			if srv.URL == "" {
				return fmt.Errorf("mcp server %q: url required for http transport", srv.Name)
			}
		default:
			return fmt.Errorf("mcp server %q: transport must be stdio or http, got %q", srv.Name, srv.Transport)
		}
	}
	return nil
}

// decryptSecrets replaces "enc:" prefixed values with their plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	if strings.HasPrefix(cfg.Endpoint.APIKey, "enc:") {
		decrypted, err := DecryptValue(strings.TrimPrefix(cfg.Endpoint.APIKey, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("endpoint api_key: %w", err)
		}
		cfg.Endpoint.APIKey = decrypted
	}
	return nil
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}

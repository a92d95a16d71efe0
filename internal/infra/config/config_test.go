package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	// WriteFile perm is subject to umask; force the exact mode.
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 10, cfg.Loop.MaxIterations)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "noop", cfg.Tracer.Exporter)
	assert.False(t, cfg.History.Enabled)
	assert.NoError(t, Validate(cfg))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Loop.MaxIterations)
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  base_url: https://api.example.com
  api_key: sk-test
  model: m-large
  strict: true
  rate_limit:
    requests_per_second: 2.5
    burst: 3
loop:
  max_iterations: 4
  use_server_state: true
history:
  enabled: true
  path: transcripts.db
logger:
  level: debug
`, 0o600)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.Endpoint.BaseURL)
	assert.Equal(t, "sk-test", cfg.Endpoint.APIKey)
	assert.Equal(t, "m-large", cfg.Endpoint.Model)
	assert.True(t, cfg.Endpoint.Strict)
	assert.Equal(t, 2.5, cfg.Endpoint.RateLimit.RequestsPerSecond)
	assert.Equal(t, 4, cfg.Loop.MaxIterations)
	assert.True(t, cfg.Loop.UseServerState)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadRejectsLoosePermissions(t *testing.T) {
	path := writeConfig(t, "endpoint:\n  model: m\n", 0o666)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure permissions")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODELWIRE_BASE_URL", "https://env.example.com")
	t.Setenv("MODELWIRE_API_KEY", "sk-env")
	t.Setenv("MODELWIRE_STRICT", "true")
	t.Setenv("MODELWIRE_LOOP_MAX_ITERATIONS", "7")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	assert.Equal(t, "https://env.example.com", cfg.Endpoint.BaseURL)
	assert.Equal(t, "sk-env", cfg.Endpoint.APIKey)
	assert.True(t, cfg.Endpoint.Strict)
	assert.Equal(t, 7, cfg.Loop.MaxIterations)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero iterations", func(c *Config) { c.Loop.MaxIterations = 0 }, "max_iterations"},
		{"bad base url", func(c *Config) { c.Endpoint.BaseURL = "ftp://x" }, "base_url"},
		{"history without path", func(c *Config) { c.History.Enabled = true; c.History.Path = "" }, "history.path"},
		{"bad exporter", func(c *Config) { c.Tracer.Exporter = "jaeger" }, "exporter"},
		{"stdio without command", func(c *Config) {
			c.MCP = []MCPServerConfig{{Name: "s", Transport: "stdio"}}
		}, "command required"},
		{"http without url", func(c *Config) {
			c.MCP = []MCPServerConfig{{Name: "s", Transport: "http"}}
		}, "url required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encrypted, err := EncryptValue("sk-secret", "passphrase")
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "sk-secret")

	decrypted, err := DecryptValue(encrypted, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", decrypted)

	_, err = DecryptValue(encrypted, "wrong")
	assert.Error(t, err)
}

func TestLoadDecryptsAPIKey(t *testing.T) {
	encrypted, err := EncryptValue("sk-real", "hunter2")
	require.NoError(t, err)

	path := writeConfig(t, "endpoint:\n  api_key: enc:"+encrypted+"\n", 0o600)
	t.Setenv("MODELWIRE_CONFIG_KEY", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-real", cfg.Endpoint.APIKey)
}

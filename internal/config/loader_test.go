package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Middleware.RequestID.Enabled)
	assert.True(t, cfg.Middleware.Audit.Enabled)
	assert.Equal(t, []string{"POST", "PUT", "DELETE", "PATCH"}, cfg.Middleware.Audit.Methods)
	assert.False(t, cfg.Middleware.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.Middleware.RateLimit.PerMinute)
	assert.Equal(t, 1000, cfg.Middleware.RateLimit.PerHour)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
middleware:
  rate_limit:
    enabled: true
    per_minute: 5
    per_hour: 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Middleware.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.Middleware.RateLimit.PerMinute)
	assert.Equal(t, 50, cfg.Middleware.RateLimit.PerHour)
	// Untouched keys keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SVCKIT_SERVER_PORT", "7070")
	t.Setenv("SVCKIT_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"unknown store driver", func(c *Config) { c.Store.Driver = "oracle" }},
		{"negative minute limit", func(c *Config) { c.Middleware.RateLimit.PerMinute = -1 }},
		{"redis store without addr", func(c *Config) {
			c.Middleware.RateLimit.Store = "redis"
			c.Middleware.RateLimit.Redis.Addr = ""
		}},
		{"unknown audit method", func(c *Config) { c.Middleware.Audit.Methods = []string{"FETCH"} }},
		{"unknown audit sink", func(c *Config) { c.Middleware.Audit.Sink = "kafka" }},
		{"trusted host enabled without hosts", func(c *Config) {
			c.Middleware.TrustedHost.Enabled = true
			c.Middleware.TrustedHost.Allowed = nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateNormalizesAuditMethods(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Middleware.Audit.Methods = []string{"post", "Delete"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"POST", "DELETE"}, cfg.Middleware.Audit.Methods)
}

func TestZeroRateLimitIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	// Zero means "deny everything", not "unlimited"; it must pass validation.
	cfg.Middleware.RateLimit.Enabled = true
	cfg.Middleware.RateLimit.PerMinute = 0
	cfg.Middleware.RateLimit.PerHour = 0
	assert.NoError(t, cfg.Validate())
}

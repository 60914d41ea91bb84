// Package config provides the typed application configuration and its
// loader. Settings resolve in three layers: built-in defaults, an optional
// YAML file, and SVCKIT_* environment variables (highest precedence).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load builds the configuration. file may be empty, in which case only
// defaults and environment variables apply.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SVCKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./data/svckit.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("auth.secret", "")

	v.SetDefault("middleware.cors.enabled", true)
	v.SetDefault("middleware.cors.origins", []string{
		"http://localhost:3000", "http://localhost:8080", "http://127.0.0.1:8080",
	})
	v.SetDefault("middleware.cors.credentials", true)
	v.SetDefault("middleware.cors.methods", []string{"*"})
	v.SetDefault("middleware.cors.headers", []string{"*"})
	v.SetDefault("middleware.cors.max_age", 600)

	v.SetDefault("middleware.security.enabled", true)
	v.SetDefault("middleware.security.hsts_enabled", false)
	v.SetDefault("middleware.security.hsts_max_age", 31536000)

	v.SetDefault("middleware.request_id.enabled", true)
	v.SetDefault("middleware.timing.enabled", true)
	v.SetDefault("middleware.logging.enabled", true)

	v.SetDefault("middleware.audit.enabled", true)
	v.SetDefault("middleware.audit.methods", []string{"POST", "PUT", "DELETE", "PATCH"})
	v.SetDefault("middleware.audit.exclude_paths", []string{"/health", "/metrics", "/version"})
	v.SetDefault("middleware.audit.sink", "store")
	v.SetDefault("middleware.audit.queue_size", 256)

	v.SetDefault("middleware.rate_limit.enabled", false)
	v.SetDefault("middleware.rate_limit.per_minute", 60)
	v.SetDefault("middleware.rate_limit.per_hour", 1000)
	v.SetDefault("middleware.rate_limit.store", "memory")
	v.SetDefault("middleware.rate_limit.trust_forwarded_for", false)
	v.SetDefault("middleware.rate_limit.redis.addr", "")
	v.SetDefault("middleware.rate_limit.redis.password", "")
	v.SetDefault("middleware.rate_limit.redis.db", 0)

	v.SetDefault("middleware.gzip.enabled", true)
	v.SetDefault("middleware.gzip.level", 5)

	v.SetDefault("middleware.trusted_host.enabled", false)
	v.SetDefault("middleware.trusted_host.allowed", []string{"localhost", "127.0.0.1"})
}

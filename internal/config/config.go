package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config is the complete application configuration. It is populated once at
// startup from defaults, an optional YAML file and SVCKIT_* environment
// variables, then validated before anything else runs.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AuthConfig holds the HS256 secret used to extract an actor identity from
// bearer tokens. Empty secret disables actor extraction; requests then fall
// back to IP-based client keys.
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

// MiddlewareConfig groups the per-stage configuration of the request
// pipeline. Each stage has its own enabled flag so deployments can switch
// concerns off individually.
type MiddlewareConfig struct {
	CORS        CORSConfig        `mapstructure:"cors"`
	Security    SecurityConfig    `mapstructure:"security"`
	RequestID   ToggleConfig      `mapstructure:"request_id"`
	Timing      ToggleConfig      `mapstructure:"timing"`
	Logging     ToggleConfig      `mapstructure:"logging"`
	Audit       AuditConfig       `mapstructure:"audit"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Gzip        GzipConfig        `mapstructure:"gzip"`
	TrustedHost TrustedHostConfig `mapstructure:"trusted_host"`
}

// ToggleConfig is a bare enabled flag for stages without parameters.
type ToggleConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// CORSConfig configures the CORS stage.
type CORSConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Origins     []string `mapstructure:"origins"`
	Credentials bool     `mapstructure:"credentials"`
	Methods     []string `mapstructure:"methods"`
	Headers     []string `mapstructure:"headers"`
	MaxAge      int      `mapstructure:"max_age"`
}

// SecurityConfig configures the security-headers stage.
type SecurityConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	HSTSEnabled bool `mapstructure:"hsts_enabled"`
	HSTSMaxAge  int  `mapstructure:"hsts_max_age"`
}

// AuditConfig configures the audit stage and recorder.
type AuditConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Methods      []string `mapstructure:"methods"`
	ExcludePaths []string `mapstructure:"exclude_paths"`
	Sink         string   `mapstructure:"sink"`
	QueueSize    int      `mapstructure:"queue_size"`
}

// RateLimitConfig configures the fixed-window rate limiter.
type RateLimitConfig struct {
	Enabled           bool        `mapstructure:"enabled"`
	PerMinute         int         `mapstructure:"per_minute"`
	PerHour           int         `mapstructure:"per_hour"`
	Store             string      `mapstructure:"store"`
	TrustForwardedFor bool        `mapstructure:"trust_forwarded_for"`
	Redis             RedisConfig `mapstructure:"redis"`
}

// RedisConfig locates the shared counter store when rate_limit.store=redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GzipConfig is pass-through configuration for response compression.
type GzipConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Level   int  `mapstructure:"level"`
}

// TrustedHostConfig restricts accepted Host headers when enabled.
type TrustedHostConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Allowed []string `mapstructure:"allowed"`
}

var knownMethods = map[string]struct{}{
	http.MethodGet: {}, http.MethodHead: {}, http.MethodPost: {},
	http.MethodPut: {}, http.MethodPatch: {}, http.MethodDelete: {},
	http.MethodOptions: {},
}

// Validate checks the configuration once at startup. It normalizes audited
// methods to upper case in place.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported store.driver: %q", c.Store.Driver)
	}

	rl := &c.Middleware.RateLimit
	if rl.PerMinute < 0 || rl.PerHour < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	switch rl.Store {
	case "memory":
	case "redis":
		if strings.TrimSpace(rl.Redis.Addr) == "" {
			return fmt.Errorf("middleware.rate_limit.redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported rate limit store: %q", rl.Store)
	}

	a := &c.Middleware.Audit
	for i, m := range a.Methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if _, ok := knownMethods[m]; !ok {
			return fmt.Errorf("unknown HTTP method in middleware.audit.methods: %q", a.Methods[i])
		}
		a.Methods[i] = m
	}
	switch a.Sink {
	case "log", "store":
	default:
		return fmt.Errorf("unsupported audit sink: %q (want log or store)", a.Sink)
	}
	if a.QueueSize < 1 {
		return fmt.Errorf("middleware.audit.queue_size must be positive")
	}

	if c.Middleware.TrustedHost.Enabled && len(c.Middleware.TrustedHost.Allowed) == 0 {
		return fmt.Errorf("middleware.trusted_host.allowed must not be empty when enabled")
	}

	return nil
}

// Addr returns the host:port the server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all service configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Channels ChannelsConfig
	Dispatch DispatchConfig
	Dedup    DedupConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 15s).
	// The live feed runs on hijacked connections and is not affected.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"15s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds settings for the default PostgreSQL connection.
// The URL is optional: deployments whose channels file declares every DSN
// explicitly (including MySQL or ODBC destinations) do not need it.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string used by channels whose
	// connection declares no DSN of its own.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ChannelsConfig locates the channel declaration file.
type ChannelsConfig struct {
	// File is the path to the channels YAML file (default: channels.yaml)
	File string `env:"CHANNELS_FILE" default:"channels.yaml"`
}

// DispatchConfig holds dispatch processing settings.
type DispatchConfig struct {
	// MaxConcurrent is the maximum number of parallel dispatches (default: 16)
	MaxConcurrent int `env:"DISPATCH_MAX_CONCURRENT" default:"16"`

	// MaxWait is how long to wait for a dispatch slot (default: 5s)
	MaxWait time.Duration `env:"DISPATCH_MAX_WAIT" default:"5s"`

	// Timeout is the maximum duration for a single dispatch (default: 30s)
	Timeout time.Duration `env:"DISPATCH_TIMEOUT" default:"30s"`

	// HistorySize is how many dispatch records to keep in memory (default: 256)
	HistorySize int `env:"DISPATCH_HISTORY_SIZE" default:"256"`
}

// DedupConfig holds idempotency-key settings.
type DedupConfig struct {
	// Enabled controls whether idempotency keys are honored (default: true)
	Enabled bool `env:"DEDUP_ENABLED" default:"true"`

	// TTL is how long an idempotency key blocks replays (default: 24h)
	TTL time.Duration `env:"DEDUP_TTL" default:"24h"`

	// RedisAddr switches the store to Redis when set (host:port).
	// Empty keeps the in-process store.
	RedisAddr string `env:"DEDUP_REDIS_ADDR"`

	// RedisPassword is the Redis auth password, if any.
	RedisPassword string `env:"DEDUP_REDIS_PASSWORD"`

	// RedisDB is the Redis database number (default: 0)
	RedisDB int `env:"DEDUP_REDIS_DB" default:"0"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the rate limit per client IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey gates the API behind X-API-Key auth (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys.
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}

// Package config loads the screener settings from the environment with defaults
// and validates them on startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every field can be set through the environment variable in its env tag.
type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Rate    RateLimitConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ShutdownTimeout is how long in-flight requests get on shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// CORS enables permissive CORS headers (default: true)
	CORS bool `env:"SERVER_CORS" default:"true"`
}

// DataConfig describes the CSV resource.
type DataConfig struct {
	// Source is a local path or an http(s) URL (default: companies_data.csv)
	Source string `env:"SCREENER_SOURCE" envAlt:"DATA_SOURCE" default:"companies_data.csv"`

	// FetchTimeout bounds a remote fetch; 0 waits forever (default: 0s)
	FetchTimeout time.Duration `env:"SCREENER_FETCH_TIMEOUT" default:"0s"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerSecond is the sustained rate per client IP (default: 50).
	// Every keystroke is a request, so keep this generous.
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" default:"50"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is console or json (default: console)
	Format string `env:"LOG_FORMAT" default:"console"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Package config provides configuration management for the SMA proxy.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// MaxUploadBytes is the largest spreadsheet accepted by the proxy and the client.
	MaxUploadBytes = 10 * 1024 * 1024

	// ChatTimeout bounds a single forwarded chat request.
	ChatTimeout = 40 * time.Second
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// EndpointsFile optionally replaces the built-in endpoint table.
	EndpointsFile string `mapstructure:"endpoints_file"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BindAddress       string        `mapstructure:"bind_address"`
	FrontendURL       string        `mapstructure:"frontend_url"`
	StaticDir         string        `mapstructure:"static_dir"`
	BodyLimit         string        `mapstructure:"body_limit"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	CompressionLevel  int           `mapstructure:"compression_level"`
	// TrustProxy takes the client IP from X-Forwarded-For. Enable only
	// behind a reverse proxy that overwrites the header.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// BackendConfig describes the upstream analysis service.
type BackendConfig struct {
	URL         string        `mapstructure:"url"`
	ChatTimeout time.Duration `mapstructure:"chat_timeout"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig is the per-IP admission policy for /api routes.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	Format         string `mapstructure:"format"` // "text" or "json"
	RequestLogging bool   `mapstructure:"request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:              3000,
			BindAddress:       "0.0.0.0",
			BodyLimit:         "10M",
			MaxUploadBytes:    MaxUploadBytes,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      150 * time.Second,
			IdleTimeout:       120 * time.Second,
			EnableCompression: true,
			CompressionLevel:  5,
		},
		Backend: BackendConfig{
			URL:         "http://localhost:5000",
			ChatTimeout: ChatTimeout,
			Timeout:     2 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			RequestLogging: true,
		},
	}
}

// Validate checks values that would otherwise fail at request time.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend url: %q", c.Backend.URL)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit needs positive requests and window")
	}
	if upstream := max(c.Backend.Timeout, c.Backend.ChatTimeout); c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= upstream {
		return fmt.Errorf("server write_timeout %s must exceed backend timeout %s", c.Server.WriteTimeout, upstream)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetFrontendURL returns the allowed browser origin, defaulting to the local server.
func (c *AppConfig) GetFrontendURL() string {
	if c.Server.FrontendURL != "" {
		return c.Server.FrontendURL
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

// GetBackendURL returns the backend base URL without a trailing slash.
func (c *AppConfig) GetBackendURL() string {
	return strings.TrimRight(c.Backend.URL, "/")
}

// AllowedOrigins lists the CORS origins for the browser client.
func (c *AppConfig) AllowedOrigins() []string {
	origins := []string{c.GetFrontendURL()}
	for _, o := range []string{"http://localhost:3000", "http://127.0.0.1:3000"} {
		if o != origins[0] {
			origins = append(origins, o)
		}
	}
	return origins
}

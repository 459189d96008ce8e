package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides of file-level keys.
const EnvPrefix = "SMA"

// ConfigFileEnv names the environment variable that points at a config file.
const ConfigFileEnv = "SMA_CONFIG"

// LoadError represents an error that occurred while loading configuration.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadConfig builds the configuration from defaults, an optional YAML file and
// the environment. PORT, FRONTEND_URL and BACKEND_URL are read unprefixed.
func LoadConfig(path string) (*AppConfig, error) {
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	// The three process-level variables keep their historical names.
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.frontend_url", "FRONTEND_URL")
	_ = v.BindEnv("backend.url", "BACKEND_URL")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, &LoadError{Path: path, Message: "config file not found", Err: err}
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &LoadError{Path: path, Message: "failed to read config file", Err: err}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to parse configuration", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Path: path, Message: "configuration validation failed", Err: err}
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.bind_address", d.Server.BindAddress)
	v.SetDefault("server.frontend_url", d.Server.FrontendURL)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.enable_compression", d.Server.EnableCompression)
	v.SetDefault("server.compression_level", d.Server.CompressionLevel)
	v.SetDefault("server.trust_proxy", d.Server.TrustProxy)

	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.chat_timeout", d.Backend.ChatTimeout)
	v.SetDefault("backend.timeout", d.Backend.Timeout)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests", d.RateLimit.Requests)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.request_logging", d.Logging.RequestLogging)

	v.SetDefault("endpoints_file", d.EndpointsFile)
}

func decodeHook(dc *mapstructure.DecoderConfig) {
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// Package config loads the process-wide settings of the cura server.
//
// Values are layered: built-in defaults, then an optional TOML file, then the
// environment (a .env file in the working directory is loaded first but never
// overrides variables that are already set). Command line flags are applied
// on top by the caller. The resulting Config is treated as read-only once the
// server starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultPort      = "3001"
	DefaultModel     = "gpt-4o-mini"
	DefaultLogFormat = "console"
)

// Config is the cura server configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port string `toml:"port" validate:"required,numeric"`

	// GatewayURL is the base URL of the content-addressed storage gateway,
	// e.g. "https://ipfs.io/ipfs". Trailing slashes are stripped before use.
	// Empty disables snippet fetching.
	GatewayURL string `toml:"ipfs_gateway" validate:"omitempty,url"`

	// OpenAIAPIKey is the completion service credential.
	OpenAIAPIKey string `toml:"openai_api_key" validate:"required"`

	// OpenAIBaseURL overrides the completion service endpoint.
	OpenAIBaseURL string `toml:"openai_base_url" validate:"omitempty,url"`

	// Model is the completion model identifier.
	Model string `toml:"openai_model" validate:"required"`

	// UpstreamTimeout bounds each gateway and completion call. Zero means no
	// timeout: a hung upstream holds the request open.
	UpstreamTimeout time.Duration `toml:"upstream_timeout" validate:"gte=0s"`

	LogFormat string `toml:"log_format" validate:"oneof=console json"`
	Debug     bool   `toml:"debug"`
}

// Default returns a Config holding the built-in defaults.
func Default() *Config {
	return &Config{
		Port:      DefaultPort,
		Model:     DefaultModel,
		LogFormat: DefaultLogFormat,
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// path is empty) and the environment. It does not validate; call Validate
// once flags have been applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	// Missing .env is fine
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.GatewayURL = getEnvOrDefault("IPFS_GATEWAY", c.GatewayURL)
	c.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.Model = getEnvOrDefault("OPENAI_MODEL", c.Model)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.Debug = getEnvAsBoolOrDefault("DEBUG", c.Debug)

	if raw := os.Getenv("UPSTREAM_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid UPSTREAM_TIMEOUT %q: %w", raw, err)
		}
		c.UpstreamTimeout = d
	}

	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first invalid field of c.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

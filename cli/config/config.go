// Package config handles CLI configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/verdant/core"
)

// Backend names accepted in the config file.
const (
	BackendREST = "rest" // providers/gemini
	BackendSDK  = "sdk"  // providers/googlegenai
)

// Retry strategies.
const (
	RetryLinear      = "linear"
	RetryExponential = "exponential"
)

// Config represents the CLI configuration.
type Config struct {
	ImageModel string                    `yaml:"image_model,omitempty"`
	TextModel  string                    `yaml:"text_model,omitempty"`
	Backend    string                    `yaml:"backend,omitempty"`
	Language   string                    `yaml:"language,omitempty"`
	Timeout    time.Duration             `yaml:"timeout,omitempty"`
	Retry      RetryConfig               `yaml:"retry"`
	RateLimit  RateLimitConfig           `yaml:"rate_limit"`
	Log        LogConfig                 `yaml:"log"`
	Serve      ServeConfig               `yaml:"serve"`
	Tracing    TracingConfig             `yaml:"tracing"`
	Providers  map[string]ProviderConfig `yaml:"providers,omitempty"`
}

// RetryConfig controls the retry policy of image-producing operations.
type RetryConfig struct {
	Strategy    string        `yaml:"strategy,omitempty"`     // linear (default) or exponential
	MaxAttempts int           `yaml:"max_attempts,omitempty"` // default 3
	Step        time.Duration `yaml:"step,omitempty"`         // default 1s
	MaxDelay    time.Duration `yaml:"max_delay,omitempty"`    // exponential only
}

// RateLimitConfig throttles provider calls. Zero RPS disables the limiter.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // console or json
}

// ServeConfig configures `verdant serve`.
type ServeConfig struct {
	Addr    string `yaml:"addr,omitempty"`
	Metrics bool   `yaml:"metrics,omitempty"`
}

// TracingConfig configures OTLP span export. Empty Endpoint disables it.
type TracingConfig struct {
	Endpoint   string  `yaml:"endpoint,omitempty"`
	SampleRate float64 `yaml:"sample_rate,omitempty"`
	Insecure   bool    `yaml:"insecure,omitempty"`
}

// ProviderConfig holds per-backend overrides.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
}

// DefaultConfigPath returns the default configuration file path for the current platform.
// - macOS/Linux: ~/.verdant/config.yaml
// - Windows: %USERPROFILE%\.verdant\config.yaml
func DefaultConfigPath() string {
	home := homeDir()
	if home == "" {
		return "config.yaml"
	}
	return filepath.Join(home, ".verdant", "config.yaml")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ImageModel: string(core.ModelImageEdit),
		TextModel:  string(core.ModelText),
		Backend:    BackendSDK,
		Language:   core.DefaultLanguage,
		Retry: RetryConfig{
			Strategy:    RetryLinear,
			MaxAttempts: 3,
			Step:        time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8080",
		},
		Providers: make(map[string]ProviderConfig),
	}
}

// LoadConfig loads configuration from the specified path on top of Default.
// If the file doesn't exist, returns the defaults without error.
// Returns an error only if the file exists but cannot be read, parsed or validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", BackendREST, BackendSDK:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendREST, BackendSDK, c.Backend)
	}
	switch c.Retry.Strategy {
	case "", RetryLinear, RetryExponential:
	default:
		return fmt.Errorf("retry.strategy must be %q or %q, got %q", RetryLinear, RetryExponential, c.Retry.Strategy)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative")
	}
	if c.Retry.Step < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry.step and retry.max_delay must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
	}
	return nil
}

// ProviderName maps Backend to the registered transport name.
func (c *Config) ProviderName() string {
	if c.Backend == BackendREST {
		return "gemini"
	}
	return "googlegenai"
}

// RetryPolicy builds the core retry policy described by Retry.
func (c *Config) RetryPolicy() core.RetryPolicy {
	if c.Retry.Strategy == RetryExponential {
		return core.NewExponentialBackoff(core.ExponentialConfig{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   c.Retry.Step,
			MaxDelay:    c.Retry.MaxDelay,
		})
	}
	return core.LinearBackoff{MaxAttempts: c.Retry.MaxAttempts, Step: c.Retry.Step}
}

// GetProvider returns the provider config for the given ID.
// Returns nil if the provider is not configured.
func (c *Config) GetProvider(id string) *ProviderConfig {
	if c.Providers == nil {
		return nil
	}
	if pc, ok := c.Providers[id]; ok {
		return &pc
	}
	return nil
}

package core

import (
	"context"
	"strings"
)

// Transport performs exactly one generation call per invocation.
// Implementations must be safe for concurrent use and must not retry.
type Transport interface {
	// ID returns the transport identifier (e.g., "gemini", "custom").
	ID() string

	// Generate sends env and returns the raw provider response.
	Generate(ctx context.Context, env *Envelope) (*Response, error)
}

// TransportConfig selects between the default provider and a custom HTTP endpoint.
type TransportConfig struct {
	EndpointURL string
	APIKey      Secret
}

// UseCustom reports whether both the endpoint URL and API key are set.
func (c TransportConfig) UseCustom() bool {
	return strings.TrimSpace(c.EndpointURL) != "" && strings.TrimSpace(c.APIKey.Expose()) != ""
}

// ConfigSource supplies the current TransportConfig.
// It is consulted on every call; implementations must not cache across calls
// when the underlying settings can change.
type ConfigSource interface {
	TransportConfig(ctx context.Context) (TransportConfig, error)
}

// ConfigSourceFunc adapts a function to ConfigSource.
type ConfigSourceFunc func(ctx context.Context) (TransportConfig, error)

// TransportConfig calls f.
func (f ConfigSourceFunc) TransportConfig(ctx context.Context) (TransportConfig, error) {
	return f(ctx)
}

// StaticConfig returns a ConfigSource that always yields cfg.
func StaticConfig(cfg TransportConfig) ConfigSource {
	return ConfigSourceFunc(func(context.Context) (TransportConfig, error) {
		return cfg, nil
	})
}

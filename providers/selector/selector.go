// Package selector routes each generation call to either the default provider
// or a user-configured custom endpoint.
package selector

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/petal-labs/verdant/core"
	"github.com/petal-labs/verdant/providers/custom"
)

// CustomFactory builds the transport used when a custom endpoint is configured.
type CustomFactory func(cfg core.TransportConfig) core.Transport

// Selector is a core.Transport that consults a ConfigSource on every call.
// Selector is safe for concurrent use as long as the ConfigSource is.
type Selector struct {
	fallback  core.Transport
	source    core.ConfigSource
	newCustom CustomFactory
	logger    *zap.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHTTPClient sets the HTTP client used for custom endpoint calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Selector) {
		s.newCustom = func(cfg core.TransportConfig) core.Transport {
			return custom.New(cfg.EndpointURL, cfg.APIKey, custom.WithHTTPClient(client))
		}
	}
}

// WithCustomFactory overrides how custom endpoint transports are built.
func WithCustomFactory(f CustomFactory) Option {
	return func(s *Selector) {
		if f != nil {
			s.newCustom = f
		}
	}
}

// New returns a Selector that uses fallback unless source yields a complete
// custom endpoint configuration. A nil source always selects fallback.
func New(fallback core.Transport, source core.ConfigSource, opts ...Option) *Selector {
	s := &Selector{
		fallback: fallback,
		source:   source,
		newCustom: func(cfg core.TransportConfig) core.Transport {
			return custom.New(cfg.EndpointURL, cfg.APIKey)
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the transport identifier.
func (s *Selector) ID() string {
	return "selector"
}

// Generate performs exactly one call on the transport chosen for this invocation.
func (s *Selector) Generate(ctx context.Context, env *core.Envelope) (*core.Response, error) {
	t := s.Select(ctx)
	if t == nil {
		return nil, core.ErrNilTransport
	}
	return t.Generate(ctx, env)
}

// Select reads the current configuration and returns the transport to use.
func (s *Selector) Select(ctx context.Context) core.Transport {
	if s.source == nil {
		return s.fallback
	}

	cfg, err := s.source.TransportConfig(ctx)
	if err != nil {
		s.logger.Warn("reading transport settings failed, using default provider", zap.Error(err))
		return s.fallback
	}

	if cfg.UseCustom() {
		s.logger.Debug("routing to custom endpoint", zap.String("endpoint", cfg.EndpointURL))
		return s.newCustom(cfg)
	}

	if s.fallback != nil {
		s.logger.Debug("routing to default provider", zap.String("transport", s.fallback.ID()))
	}
	return s.fallback
}

// Compile-time check that Selector implements core.Transport.
var _ core.Transport = (*Selector)(nil)

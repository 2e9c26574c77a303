package gemini

import (
	"context"
	"net/http"

	"github.com/petal-labs/verdant/core"
)

const providerID = "gemini"

// Gemini is a transport for the Google Gemini REST API.
// Gemini is safe for concurrent use.
type Gemini struct {
	config Config
}

// New creates a new Gemini transport with the given API key and options.
func New(apiKey string, opts ...Option) *Gemini {
	cfg := Config{
		APIKey:     core.NewSecret(apiKey),
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Timeout > 0 && cfg.HTTPClient == http.DefaultClient {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Gemini{config: cfg}
}

// ID returns the transport identifier.
func (p *Gemini) ID() string {
	return providerID
}

// buildHeaders constructs the HTTP headers for an API request.
func (p *Gemini) buildHeaders() http.Header {
	headers := make(http.Header)

	headers.Set("x-goog-api-key", p.config.APIKey.Expose())
	headers.Set("Content-Type", "application/json")

	for key, values := range p.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}

	return headers
}

// Generate sends a single generateContent request.
func (p *Gemini) Generate(ctx context.Context, env *core.Envelope) (*core.Response, error) {
	return p.doGenerate(ctx, env)
}

// Compile-time check that Gemini implements Transport.
var _ core.Transport = (*Gemini)(nil)

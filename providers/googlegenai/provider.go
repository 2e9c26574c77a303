// Package googlegenai provides a default-provider transport built on the
// official google.golang.org/genai SDK.
package googlegenai

import (
	"context"
	"net/http"
	"sync"

	"google.golang.org/genai"

	"github.com/petal-labs/verdant/core"
)

const providerID = "googlegenai"

// Transport calls Models.GenerateContent through the genai SDK.
// The SDK client is created on first use. Transport is safe for concurrent use.
type Transport struct {
	apiKey     core.Secret
	baseURL    string
	httpClient *http.Client

	once    sync.Once
	client  *genai.Client
	initErr error
}

// Option configures the transport.
type Option func(*Transport)

// WithBaseURL overrides the Gemini API base URL.
func WithBaseURL(url string) Option {
	return func(t *Transport) {
		t.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client handed to the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = client
	}
}

// New creates an SDK-backed transport.
func New(apiKey string, opts ...Option) *Transport {
	t := &Transport{apiKey: core.NewSecret(apiKey)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the transport identifier.
func (t *Transport) ID() string {
	return providerID
}

func (t *Transport) sdk(ctx context.Context) (*genai.Client, error) {
	t.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:     t.apiKey.Expose(),
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: t.httpClient,
		}
		if t.baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: t.baseURL}
		}
		t.client, t.initErr = genai.NewClient(ctx, cfg)
	})
	return t.client, t.initErr
}

// Generate sends a single GenerateContent request.
func (t *Transport) Generate(ctx context.Context, env *core.Envelope) (*core.Response, error) {
	client, err := t.sdk(ctx)
	if err != nil {
		return nil, &core.ProviderError{
			Provider: providerID,
			Code:     core.StatusUnauthenticated,
			Message:  err.Error(),
			Err:      core.ErrUnauthorized,
		}
	}

	contents, cfg, err := buildRequest(env)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateContent(ctx, string(env.Model), contents, cfg)
	if err != nil {
		return nil, normalizeError(err)
	}
	return mapResponse(resp), nil
}

// Compile-time check that Transport implements core.Transport.
var _ core.Transport = (*Transport)(nil)

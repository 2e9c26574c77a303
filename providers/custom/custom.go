// Package custom provides a transport that forwards envelopes verbatim to a
// user-configured HTTP endpoint with bearer-token authentication.
package custom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/petal-labs/verdant/core"
	"github.com/petal-labs/verdant/providers/internal/normalize"
)

const providerID = "custom"

// maxErrorBody caps how much of a failed response body is kept on the error.
const maxErrorBody = 64 << 10

// Transport posts the envelope JSON to a custom endpoint.
// Transport is safe for concurrent use.
type Transport struct {
	endpoint   string
	apiKey     core.Secret
	httpClient *http.Client
}

// Option configures the custom transport.
type Option func(*Transport)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// New creates a transport for endpoint authenticated with apiKey.
func New(endpoint string, apiKey core.Secret, opts ...Option) *Transport {
	t := &Transport{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the transport identifier.
func (t *Transport) ID() string {
	return providerID
}

// Generate sends env as-is and decodes a generateContent-shaped response.
func (t *Transport) Generate(ctx context.Context, env *core.Envelope) (*core.Response, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, normalize.DecodeError(providerID, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, normalize.NetworkError(providerID, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey.Expose())

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, normalize.NetworkError(providerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newStatusError(resp.StatusCode, errBody)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, normalize.NetworkError(providerID, err)
	}

	var out core.Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, normalize.DecodeError(providerID, err)
	}
	return &out, nil
}

// newStatusError builds the error for a non-2xx response. The HTTP status alone
// never sets Code; only a google-style body does.
func newStatusError(status int, body []byte) error {
	code, _ := normalize.ParseGoogleError(body)
	return &core.ProviderError{
		Provider: providerID,
		Status:   status,
		Code:     code,
		Message:  fmt.Sprintf("custom API request failed with status %d: %s", status, body),
		Body:     string(body),
		Err:      core.ErrTransport,
	}
}

// Compile-time check that Transport implements core.Transport.
var _ core.Transport = (*Transport)(nil)

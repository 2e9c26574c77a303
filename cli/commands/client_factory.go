package commands

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/petal-labs/verdant/cli/config"
	"github.com/petal-labs/verdant/cli/keystore"
	"github.com/petal-labs/verdant/cli/settings"
	"github.com/petal-labs/verdant/core"
	"github.com/petal-labs/verdant/providers"
	"github.com/petal-labs/verdant/providers/gemini"
	"github.com/petal-labs/verdant/providers/googlegenai"
	"github.com/petal-labs/verdant/providers/selector"
	"github.com/petal-labs/verdant/telemetry/tracing"
)

// API key environment variables, checked in order before the keystore.
var apiKeyEnvVars = []string{"GEMINI_API_KEY", "API_KEY"}

func defaultTransportFactory(cfg *config.Config, apiKey string) (core.Transport, error) {
	name := cfg.ProviderName()
	baseURL := ""
	if pc := cfg.GetProvider(name); pc != nil {
		baseURL = pc.BaseURL
	}

	switch name {
	case "gemini":
		var opts []gemini.Option
		if baseURL != "" {
			opts = append(opts, gemini.WithBaseURL(baseURL))
		}
		return gemini.New(apiKey, opts...), nil
	case "googlegenai":
		var opts []googlegenai.Option
		if baseURL != "" {
			opts = append(opts, googlegenai.WithBaseURL(baseURL))
		}
		return googlegenai.New(apiKey, opts...), nil
	}

	// Fall back to registry for externally-registered transports.
	if providers.IsRegistered(name) {
		return providers.Create(name, apiKey)
	}
	return nil, fmt.Errorf("unsupported backend: %s (available: %v)", name, providers.List())
}

// resolveAPIKey returns the Gemini key from the environment or the keystore.
// A missing key is not an error here: a complete custom endpoint setting
// does not need it.
func (a *App) resolveAPIKey(ks keystore.Keystore) (string, error) {
	for _, name := range apiKeyEnvVars {
		if v := strings.TrimSpace(a.getenv(name)); v != "" {
			return v, nil
		}
	}
	key, err := ks.Get(keystore.GeminiKey)
	var nf *keystore.ErrKeyNotFound
	if errors.As(err, &nf) {
		return "", nil
	}
	return key, err
}

// buildClient wires transport selection, retry, rate limiting and telemetry
// from the loaded config.
func (a *App) buildClient(hooks ...core.TelemetryHook) (*core.Client, error) {
	cfg := a.cfg
	if cfg == nil {
		cfg = config.Default()
	}

	ks, err := a.newKeystore()
	if err != nil {
		return nil, validationError("failed to open keystore: %w", err)
	}
	apiKey, err := a.resolveAPIKey(ks)
	if err != nil {
		return nil, validationError("failed to read API key: %w", err)
	}

	fallback, err := a.newTransport(cfg, apiKey)
	if err != nil {
		return nil, exitWithCode(ExitValidation, err)
	}
	transport := selector.New(fallback, settings.New(ks), selector.WithLogger(a.logger))

	if apiKey == "" {
		a.logger.Debug("no Gemini API key configured; only a custom endpoint will work",
			zap.Strings("env", apiKeyEnvVars))
	}

	opts := []core.ClientOption{
		core.WithLogger(a.logger),
		core.WithRetryPolicy(cfg.RetryPolicy()),
		core.WithImageModel(core.ModelID(cfg.ImageModel)),
		core.WithTextModel(core.ModelID(cfg.TextModel)),
		core.WithTimeout(cfg.Timeout),
	}
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, core.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)))
	}
	if a.tracing.Enabled() {
		hooks = append(hooks, tracing.NewHook(nil))
	}
	if len(hooks) > 0 {
		opts = append(opts, core.WithTelemetry(core.MultiTelemetryHook(hooks)))
	}

	return core.NewClient(transport, opts...), nil
}

package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the main entry point for editing and analyzing photos.
// Client is safe for concurrent use.
type Client struct {
	transport  Transport
	telemetry  TelemetryHook
	retry      RetryPolicy
	logger     *zap.Logger
	limiter    *rate.Limiter
	imageModel ModelID
	textModel  ModelID
	timeout    time.Duration
	sleep      Sleeper
	newID      func() string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Client that sends every call through t.
func NewClient(t Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport:  t,
		telemetry:  NoopTelemetryHook{},
		retry:      DefaultRetryPolicy(),
		logger:     zap.NewNop(),
		imageModel: ModelImageEdit,
		textModel:  ModelText,
		sleep:      SleepContext,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTelemetry sets the telemetry hook for the client.
func WithTelemetry(h TelemetryHook) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.telemetry = h
		}
	}
}

// WithRetryPolicy sets the retry policy for image-producing operations.
func WithRetryPolicy(r RetryPolicy) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.retry = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRateLimiter throttles transport calls. Every attempt waits for a token,
// including retries.
func WithRateLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithImageModel overrides the model used by EditImage and EditImageWithMask.
func WithImageModel(m ModelID) ClientOption {
	return func(c *Client) {
		if m != "" {
			c.imageModel = m
		}
	}
}

// WithTextModel overrides the model used by ImprovePrompt and AnalyzeImage.
func WithTextModel(m ModelID) ClientOption {
	return func(c *Client) {
		if m != "" {
			c.textModel = m
		}
	}
}

// WithTimeout bounds each operation, retries and waits included.
// Zero means no timeout beyond the caller's context.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// Transport returns the underlying transport.
func (c *Client) Transport() Transport {
	return c.transport
}

// EditImage applies a natural-language edit to img.
//
// The call is retried according to the client's RetryPolicy. Any failure after
// validation is reported as ErrGenerationFailedPermanently.
func (c *Client) EditImage(ctx context.Context, img Image, prompt string) (*EditResult, error) {
	mimeType, data, err := img.encode()
	if err != nil {
		return nil, err
	}
	env := NewEnvelope(c.imageModel, imageConfig(),
		InlinePart(mimeType, data),
		TextPart(prompt),
	)
	return c.generateImage(ctx, OpEditImage, env)
}

// EditImageWithMask applies an edit restricted to the white areas of mask.
// The mask is always sent as image/png.
func (c *Client) EditImageWithMask(ctx context.Context, img Image, mask Image, prompt string) (*EditResult, error) {
	mimeType, data, err := img.encode()
	if err != nil {
		return nil, err
	}
	_, maskData, err := mask.encode()
	if err != nil {
		return nil, err
	}
	env := NewEnvelope(c.imageModel, imageConfig(),
		InlinePart(mimeType, data),
		InlinePart(MIMETypePNG, maskData),
		TextPart(prompt),
	)
	return c.generateImage(ctx, OpEditImageWithMask, env)
}

// ImprovePrompt rewrites a short edit request into a detailed one.
// An empty prompt returns "" without calling the provider.
func (c *Client) ImprovePrompt(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", nil
	}
	env := NewEnvelope(c.textModel,
		&GenerateConfig{SystemInstruction: improvePromptInstruction},
		TextPart(prompt),
	)
	resp, err := c.generateOnce(ctx, OpImprovePrompt, env)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// AnalyzeImage describes the garden in img and suggests improvements,
// written in language (a language code such as "en" or "pt").
func (c *Client) AnalyzeImage(ctx context.Context, img Image, language string) (*AnalysisResult, error) {
	mimeType, data, err := img.encode()
	if err != nil {
		return nil, err
	}
	env := NewEnvelope(c.textModel,
		&GenerateConfig{
			SystemInstruction: AnalysisInstruction(language),
			ResponseMimeType:  "application/json",
			ResponseSchema:    AnalysisSchema(),
		},
		InlinePart(mimeType, data),
	)
	resp, err := c.generateOnce(ctx, OpAnalyzeImage, env)
	if err != nil {
		return nil, err
	}
	result, err := ParseAnalysis(resp.Text())
	if err != nil {
		c.logger.Error("analysis response rejected",
			zap.String("operation", string(OpAnalyzeImage)),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func imageConfig() *GenerateConfig {
	return &GenerateConfig{
		ResponseModalities: []Modality{ModalityImage, ModalityText},
	}
}

// generateImage runs env through the retry loop and normalizes the response.
func (c *Client) generateImage(ctx context.Context, op Operation, env *Envelope) (*EditResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reqID := c.newID()
	log := c.logger.With(
		zap.String("operation", string(op)),
		zap.String("request_id", reqID),
		zap.String("model", string(env.Model)),
	)

	start := time.Now()
	c.telemetry.OnRequestStart(RequestStartEvent{
		Operation: op,
		Model:     env.Model,
		RequestID: reqID,
		Start:     start,
	})

	var usage TokenUsage
	attempt := func(ctx context.Context) (*EditResult, error) {
		resp, err := c.send(ctx, env)
		if err != nil {
			return nil, err
		}
		usage = resp.Usage()
		return NormalizeEdit(resp)
	}
	observe := func(e AttemptEvent) {
		e.Operation = op
		e.Model = env.Model
		e.RequestID = reqID
		c.telemetry.OnAttempt(e)
	}

	r := Retrier{Policy: c.retry, Sleep: c.sleep, Logger: log}
	result, report, err := r.Run(ctx, attempt, observe)

	c.telemetry.OnRequestEnd(RequestEndEvent{
		Operation: op,
		Model:     env.Model,
		RequestID: reqID,
		Start:     start,
		End:       time.Now(),
		Attempts:  report.Attempts,
		Usage:     usage,
		Err:       err,
		LastErr:   report.LastErr,
	})
	return result, err
}

// generateOnce performs a single call with no retry.
func (c *Client) generateOnce(ctx context.Context, op Operation, env *Envelope) (*Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reqID := c.newID()
	start := time.Now()
	c.telemetry.OnRequestStart(RequestStartEvent{
		Operation: op,
		Model:     env.Model,
		RequestID: reqID,
		Start:     start,
	})

	resp, err := c.send(ctx, env)
	end := time.Now()

	event := AttemptEvent{
		Operation: op,
		Model:     env.Model,
		RequestID: reqID,
		Attempt:   1,
		Start:     start,
		End:       end,
		Err:       err,
	}
	var usage TokenUsage
	if err != nil {
		event.Class = Classify(err)
		event.Outcome = OutcomeNonRetriable
		c.logger.Error("generation failed",
			zap.String("operation", string(op)),
			zap.String("request_id", reqID),
			zap.String("model", string(env.Model)),
			zap.Error(err),
		)
	} else {
		event.Outcome = OutcomeSucceeded
		usage = resp.Usage()
	}
	c.telemetry.OnAttempt(event)

	c.telemetry.OnRequestEnd(RequestEndEvent{
		Operation: op,
		Model:     env.Model,
		RequestID: reqID,
		Start:     start,
		End:       end,
		Attempts:  1,
		Usage:     usage,
		Err:       err,
		LastErr:   err,
	})
	return resp, err
}

// send makes exactly one transport call.
func (c *Client) send(ctx context.Context, env *Envelope) (*Response, error) {
	if c.transport == nil {
		return nil, ErrNilTransport
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := c.transport.Generate(ctx, env)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrUnknownAPI
	}
	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

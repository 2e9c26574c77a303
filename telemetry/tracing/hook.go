// Package tracing records verdant operations as OpenTelemetry spans.
//
// Hook implements core.TelemetryHook: each operation becomes a span and each
// transport attempt a child span. Hooks carry no context, so spans are linked
// through the request ID on the events.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/verdant/core"
)

// InstrumentationName is the tracer name used by Hook.
const InstrumentationName = "github.com/petal-labs/verdant"

// Hook is a core.TelemetryHook backed by an OpenTelemetry tracer.
type Hook struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewHook creates a Hook using tp. A nil tp uses the global provider.
func NewHook(tp trace.TracerProvider) *Hook {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Hook{
		tracer: tp.Tracer(InstrumentationName),
		spans:  make(map[string]trace.Span),
	}
}

// OnRequestStart opens the operation span.
func (h *Hook) OnRequestStart(e core.RequestStartEvent) {
	_, span := h.tracer.Start(context.Background(), "verdant."+string(e.Operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(e.Start),
		trace.WithAttributes(
			attribute.String("verdant.operation", string(e.Operation)),
			attribute.String("verdant.model", string(e.Model)),
			attribute.String("verdant.request_id", e.RequestID),
		),
	)

	h.mu.Lock()
	h.spans[e.RequestID] = span
	h.mu.Unlock()
}

// OnAttempt records one attempt as a child of the operation span.
func (h *Hook) OnAttempt(e core.AttemptEvent) {
	ctx := context.Background()
	h.mu.Lock()
	if parent, ok := h.spans[e.RequestID]; ok {
		ctx = trace.ContextWithSpan(ctx, parent)
	}
	h.mu.Unlock()

	_, span := h.tracer.Start(ctx, "verdant.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(e.Start),
		trace.WithAttributes(
			attribute.Int("verdant.attempt", e.Attempt),
			attribute.String("verdant.outcome", e.Outcome.String()),
		),
	)
	if e.Err != nil {
		span.SetAttributes(attribute.String("verdant.error_class", e.Class.String()))
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Outcome.String())
	}
	if e.Delay > 0 {
		span.SetAttributes(attribute.Int64("verdant.retry_delay_ms", e.Delay.Milliseconds()))
	}
	span.End(trace.WithTimestamp(e.End))
}

// OnRequestEnd closes the operation span.
func (h *Hook) OnRequestEnd(e core.RequestEndEvent) {
	h.mu.Lock()
	span, ok := h.spans[e.RequestID]
	delete(h.spans, e.RequestID)
	h.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.Int("verdant.attempts", e.Attempts),
		attribute.Int("verdant.tokens.prompt", e.Usage.PromptTokens),
		attribute.Int("verdant.tokens.candidates", e.Usage.CandidatesTokens),
		attribute.Int("verdant.tokens.total", e.Usage.TotalTokens),
	)
	if e.Err != nil {
		code := core.ErrorCode(e.Err)
		span.SetAttributes(attribute.String("error.code", code))
		if e.LastErr != nil {
			span.SetAttributes(attribute.String("verdant.last_error_class", core.Classify(e.LastErr).String()))
		}
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, code)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.End))
}

var _ core.TelemetryHook = (*Hook)(nil)

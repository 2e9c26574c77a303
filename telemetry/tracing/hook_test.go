package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/petal-labs/verdant/core"
)

func newRecordedHook(t *testing.T) (*Hook, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewHook(tp), rec
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestHookRecordsOperationAndAttempts(t *testing.T) {
	hook, rec := newRecordedHook(t)
	start := time.Now()

	hook.OnRequestStart(core.RequestStartEvent{
		Operation: core.OpEditImage,
		Model:     core.ModelImageEdit,
		RequestID: "req-1",
		Start:     start,
	})
	hook.OnAttempt(core.AttemptEvent{
		Operation: core.OpEditImage,
		RequestID: "req-1",
		Attempt:   1,
		Start:     start,
		End:       start.Add(10 * time.Millisecond),
		Outcome:   core.OutcomeRetriable,
		Class:     core.ClassTransient,
		Delay:     time.Second,
		Err:       core.ErrNoImageReturned,
	})
	hook.OnAttempt(core.AttemptEvent{
		Operation: core.OpEditImage,
		RequestID: "req-1",
		Attempt:   2,
		Start:     start.Add(time.Second),
		End:       start.Add(1100 * time.Millisecond),
		Outcome:   core.OutcomeSucceeded,
	})
	hook.OnRequestEnd(core.RequestEndEvent{
		Operation: core.OpEditImage,
		RequestID: "req-1",
		Start:     start,
		End:       start.Add(1100 * time.Millisecond),
		Attempts:  2,
		Usage:     core.TokenUsage{PromptTokens: 5, CandidatesTokens: 7, TotalTokens: 12},
	})

	spans := rec.Ended()
	if len(spans) != 3 {
		t.Fatalf("ended spans = %d, want 3", len(spans))
	}

	op := spans[2]
	if op.Name() != "verdant.edit_image" {
		t.Errorf("operation span name = %q", op.Name())
	}
	if op.Status().Code != codes.Ok {
		t.Errorf("operation status = %v, want Ok", op.Status().Code)
	}
	if v, ok := attr(op, "verdant.attempts"); !ok || v.AsInt64() != 2 {
		t.Errorf("verdant.attempts = %v", v)
	}
	if v, ok := attr(op, "verdant.tokens.total"); !ok || v.AsInt64() != 12 {
		t.Errorf("verdant.tokens.total = %v", v)
	}

	for _, s := range spans[:2] {
		if s.Parent().SpanID() != op.SpanContext().SpanID() {
			t.Errorf("attempt span %q not parented to operation span", s.Name())
		}
	}

	failed := spans[0]
	if failed.Status().Code != codes.Error {
		t.Errorf("failed attempt status = %v, want Error", failed.Status().Code)
	}
	if v, _ := attr(failed, "verdant.error_class"); v.AsString() != "transient" {
		t.Errorf("error class = %q, want transient", v.AsString())
	}
	if v, _ := attr(failed, "verdant.retry_delay_ms"); v.AsInt64() != 1000 {
		t.Errorf("retry delay = %d, want 1000", v.AsInt64())
	}
}

func TestHookRecordsFailure(t *testing.T) {
	hook, rec := newRecordedHook(t)
	now := time.Now()

	hook.OnRequestStart(core.RequestStartEvent{Operation: core.OpEditImage, RequestID: "req-2", Start: now})
	hook.OnRequestEnd(core.RequestEndEvent{
		Operation: core.OpEditImage,
		RequestID: "req-2",
		Start:     now,
		End:       now,
		Attempts:  3,
		Err:       &core.GenerationError{Attempts: 3},
		LastErr:   core.ErrNoImageReturned,
	})

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Fatalf("status = %v, want Error", s.Status().Code)
	}
	if s.Status().Description != core.CodeGenerationFailedPermanently {
		t.Errorf("status description = %q", s.Status().Description)
	}
	if len(s.Events()) == 0 {
		t.Error("expected an exception event")
	}
}

func TestHookUnknownRequestIsIgnored(t *testing.T) {
	hook, rec := newRecordedHook(t)
	hook.OnRequestEnd(core.RequestEndEvent{RequestID: "missing", Err: errors.New("boom")})
	if n := len(rec.Ended()); n != 0 {
		t.Errorf("ended spans = %d, want 0", n)
	}
}

func TestNewHookDefaultsToGlobalProvider(t *testing.T) {
	orig := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)

	hook := NewHook(nil)
	hook.OnRequestStart(core.RequestStartEvent{Operation: core.OpImprovePrompt, RequestID: "r"})
	hook.OnRequestEnd(core.RequestEndEvent{Operation: core.OpImprovePrompt, RequestID: "r"})

	if n := len(rec.Ended()); n != 1 {
		t.Errorf("ended spans = %d, want 1", n)
	}
}

func TestInitDisabled(t *testing.T) {
	p, err := Init(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if p.Enabled() {
		t.Error("provider should be disabled without endpoint")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestShutdownNilProvider(t *testing.T) {
	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

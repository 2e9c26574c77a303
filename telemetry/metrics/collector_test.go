package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/petal-labs/verdant/core"
)

func TestCollectorRecordsOperation(t *testing.T) {
	c := NewCollector("verdant", nil, nil)
	now := time.Now()

	c.OnRequestStart(core.RequestStartEvent{Operation: core.OpEditImage, Model: core.ModelImageEdit})
	if got := testutil.ToFloat64(c.inFlight.WithLabelValues("edit_image")); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}

	c.OnAttempt(core.AttemptEvent{
		Operation: core.OpEditImage,
		Attempt:   1,
		Start:     now,
		End:       now.Add(200 * time.Millisecond),
		Outcome:   core.OutcomeRetriable,
		Class:     core.ClassNoImageReturned,
		Delay:     time.Second,
		Err:       core.ErrNoImageReturned,
	})
	c.OnAttempt(core.AttemptEvent{
		Operation: core.OpEditImage,
		Attempt:   2,
		Start:     now,
		End:       now.Add(time.Second),
		Outcome:   core.OutcomeSucceeded,
	})
	c.OnRequestEnd(core.RequestEndEvent{
		Operation: core.OpEditImage,
		Model:     core.ModelImageEdit,
		Start:     now,
		End:       now.Add(2 * time.Second),
		Attempts:  2,
		Usage:     core.TokenUsage{PromptTokens: 10, CandidatesTokens: 4},
	})

	model := string(core.ModelImageEdit)
	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"ok operations", c.requestsTotal.WithLabelValues("edit_image", model, "ok"), 1},
		{"retriable attempts", c.attemptsTotal.WithLabelValues("edit_image", "retriable", "no_image_returned"), 1},
		{"succeeded attempts", c.attemptsTotal.WithLabelValues("edit_image", "succeeded", ""), 1},
		{"prompt tokens", c.tokensUsed.WithLabelValues("edit_image", model, "prompt"), 10},
		{"candidate tokens", c.tokensUsed.WithLabelValues("edit_image", model, "candidates"), 4},
		{"in flight", c.inFlight.WithLabelValues("edit_image"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(c.retryDelay); n != 1 {
		t.Errorf("retry delay series = %d, want 1", n)
	}
}

func TestCollectorRecordsErrorCode(t *testing.T) {
	c := NewCollector("verdant", nil, nil)
	c.OnRequestStart(core.RequestStartEvent{Operation: core.OpEditImage})
	c.OnRequestEnd(core.RequestEndEvent{
		Operation: core.OpEditImage,
		Err:       &core.GenerationError{Attempts: 3},
		LastErr:   errors.New("upstream"),
	})

	got := testutil.ToFloat64(c.requestsTotal.WithLabelValues("edit_image", "", core.CodeGenerationFailedPermanently))
	if got != 1 {
		t.Errorf("failed operations = %v, want 1", got)
	}
}

func TestCollectorRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("verdant", reg, nil)
	c.RecordHTTPRequest(http.MethodPost, "/v1/edit", http.StatusOK, 50*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "verdant_http_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("verdant_http_requests_total not registered")
	}
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector("verdant", nil, nil)
	c.RecordHTTPRequest(http.MethodGet, "/v1/healthz", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `verdant_http_requests_total{method="GET",path="/v1/healthz",status="200"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
}

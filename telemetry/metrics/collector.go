// Package metrics exposes verdant operations and the HTTP API as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/petal-labs/verdant/core"
)

// Collector implements core.TelemetryHook on top of Prometheus vectors.
type Collector struct {
	// operation metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
	tokensUsed      *prometheus.CounterVec

	// attempt metrics
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	retryDelay      *prometheus.HistogramVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewCollector registers the verdant metrics with reg. A nil reg uses a fresh
// registry, which is what tests want; servers normally pass
// prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	c := &Collector{
		gatherer: gatherer,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.requestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of edit, prompt and analysis operations",
		},
		[]string{"operation", "model", "code"}, // code: "ok" or core.ErrorCode
	)

	c.requestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation duration in seconds, retries and waits included",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"operation", "model"},
	)

	c.inFlight = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operations_in_flight",
			Help:      "Number of operations currently running",
		},
		[]string{"operation"},
	)

	c.tokensUsed = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total number of tokens reported by the provider",
		},
		[]string{"operation", "model", "type"}, // type: prompt, candidates
	)

	c.attemptsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of transport attempts",
		},
		[]string{"operation", "outcome", "class"},
	)

	c.attemptDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Transport attempt duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	c.retryDelay = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Wait before the next attempt in seconds",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 30},
		},
		[]string{"operation"},
	)

	c.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	return c
}

// OnRequestStart implements core.TelemetryHook.
func (c *Collector) OnRequestStart(e core.RequestStartEvent) {
	c.inFlight.WithLabelValues(string(e.Operation)).Inc()
}

// OnAttempt implements core.TelemetryHook.
func (c *Collector) OnAttempt(e core.AttemptEvent) {
	class := ""
	if e.Err != nil {
		class = e.Class.String()
	}
	op := string(e.Operation)
	c.attemptsTotal.WithLabelValues(op, e.Outcome.String(), class).Inc()
	c.attemptDuration.WithLabelValues(op).Observe(e.Duration().Seconds())
	if e.Delay > 0 {
		c.retryDelay.WithLabelValues(op).Observe(e.Delay.Seconds())
	}
}

// OnRequestEnd implements core.TelemetryHook.
func (c *Collector) OnRequestEnd(e core.RequestEndEvent) {
	op, model := string(e.Operation), string(e.Model)
	code := "ok"
	if e.Err != nil {
		code = core.ErrorCode(e.Err)
	}

	c.inFlight.WithLabelValues(op).Dec()
	c.requestsTotal.WithLabelValues(op, model, code).Inc()
	c.requestDuration.WithLabelValues(op, model).Observe(e.Duration().Seconds())

	if e.Usage.PromptTokens > 0 {
		c.tokensUsed.WithLabelValues(op, model, "prompt").Add(float64(e.Usage.PromptTokens))
	}
	if e.Usage.CandidatesTokens > 0 {
		c.tokensUsed.WithLabelValues(op, model, "candidates").Add(float64(e.Usage.CandidatesTokens))
	}

	c.logger.Debug("operation recorded",
		zap.String("operation", op),
		zap.String("code", code),
		zap.Int("attempts", e.Attempts),
		zap.Duration("duration", e.Duration()),
	)
}

// RecordHTTPRequest records one served HTTP request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler serves the registry the collector was registered with.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

var _ core.TelemetryHook = (*Collector)(nil)

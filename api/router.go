// Package api serves the verdant operations as a JSON HTTP API for a
// browser front-end.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/petal-labs/verdant/core"
	"github.com/petal-labs/verdant/telemetry/metrics"
)

// DefaultMaxBodyBytes bounds request bodies. Photos arrive base64-encoded.
const DefaultMaxBodyBytes = 32 << 20

// Service is the subset of *core.Client the API needs.
type Service interface {
	EditImage(ctx context.Context, img core.Image, prompt string) (*core.EditResult, error)
	EditImageWithMask(ctx context.Context, img, mask core.Image, prompt string) (*core.EditResult, error)
	ImprovePrompt(ctx context.Context, prompt string) (string, error)
	AnalyzeImage(ctx context.Context, img core.Image, language string) (*core.AnalysisResult, error)
}

var _ Service = (*core.Client)(nil)

// Option configures the router.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records HTTP metrics and mounts GET /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// WithDefaultLanguage sets the analysis language used when a request names none.
func WithDefaultLanguage(lang string) Option {
	return func(s *Server) {
		if lang != "" {
			s.language = lang
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// Server holds handler dependencies.
type Server struct {
	svc      Service
	logger   *zap.Logger
	metrics  *metrics.Collector
	language string
	maxBody  int64
}

// NewRouter returns the HTTP handler for svc.
func NewRouter(svc Service, opts ...Option) http.Handler {
	s := &Server{
		svc:      svc,
		logger:   zap.NewNop(),
		language: core.DefaultLanguage,
		maxBody:  DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger, s.metrics),
		middleware.Recoverer,
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", s.health)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/edit", s.edit)
			r.Post("/inpaint", s.inpaint)
			r.Post("/improve-prompt", s.improvePrompt)
			r.Post("/analyze", s.analyze)
		})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

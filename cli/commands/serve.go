package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petal-labs/verdant/api"
	"github.com/petal-labs/verdant/core"
	"github.com/petal-labs/verdant/telemetry/metrics"
)

const shutdownTimeout = 15 * time.Second

func (a *App) newServeCommand() *cobra.Command {
	var (
		addr       string
		withMetric bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing operations as a JSON HTTP API",
		Long: `Start an HTTP server exposing:

  POST /v1/edit            {"image":{"data":...},"prompt":...}
  POST /v1/inpaint         {"image":{...},"mask":{...},"prompt":...}
  POST /v1/improve-prompt  {"prompt":...}
  POST /v1/analyze         {"image":{...},"language":...}
  GET  /v1/healthz
  GET  /metrics            (with --metrics)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}
			if !cmd.Flags().Changed("metrics") {
				withMetric = a.cfg.Serve.Metrics
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.handleError(a.runServe(ctx, addr, withMetric, nil))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&withMetric, "metrics", false, "expose Prometheus metrics at /metrics")
	return cmd
}

// runServe blocks until ctx is done. ready, when non-nil, receives the bound address.
func (a *App) runServe(ctx context.Context, addr string, withMetrics bool, ready chan<- string) error {
	var (
		hooks     []core.TelemetryHook
		collector *metrics.Collector
	)
	if withMetrics {
		collector = metrics.NewCollector("verdant", prometheus.NewRegistry(), a.logger)
		hooks = append(hooks, collector)
	}

	client, err := a.buildClient(hooks...)
	if err != nil {
		return err
	}

	opts := []api.Option{
		api.WithLogger(a.logger),
		api.WithDefaultLanguage(a.cfg.Language),
	}
	if collector != nil {
		opts = append(opts, api.WithMetrics(collector))
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return validationError("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           api.NewRouter(client, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("verdant API listening", zap.String("addr", ln.Addr().String()), zap.Bool("metrics", withMetrics))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/schedcli/internal/config"
	"github.com/teemow/schedcli/internal/logging"
	"github.com/teemow/schedcli/internal/server"
	"github.com/teemow/schedcli/internal/web"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the schedule UI as a local web server",
		Long: `Run the schedule UI as a local web server for a single user. The session
is shared with the other commands through the session file.

Health endpoints are served on /healthz, /readyz and /healthz/detailed. When
metrics are enabled and instrumentation exports to Prometheus, a separate
metrics server exposes /metrics.

Instrumentation is configured with the environment variables
INSTRUMENTATION_ENABLED, METRICS_EXPORTER, TRACING_EXPORTER and OTEL_*.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context())
		},
	}

	cmd.Flags().String("addr", config.DefaultWebAddr, "Listen address of the web UI")
	cmd.Flags().String("csrf-key", "", "32-byte CSRF key, hex or base64 encoded (random when empty)")
	cmd.Flags().Bool("metrics", true, "Serve Prometheus metrics on a separate address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "Listen address of the metrics server")
	c.bind(cmd, map[string]string{
		"web.addr":        "addr",
		"web.csrf_key":    "csrf-key",
		"metrics.enabled": "metrics",
		"metrics.addr":    "metrics-addr",
	})
	return cmd
}

func (c *cli) runServe(ctx context.Context) error {
	log := logging.WithComponent(c.logger, "serve")

	if err := c.app.Start(ctx); err != nil {
		log.Warn("failed to restore session", logging.Err(err))
	}

	key, err := decodeCSRFKey(c.cfg.Web.CSRFKey)
	if err != nil {
		return err
	}

	health := server.NewHealthChecker()
	health.AddCheck("api", apiReachable(c.cfg.APIURL))

	ui, err := web.New(c.app, web.Options{
		CSRFKey: key,
		Logger:  c.logger,
		Metrics: c.provider.Metrics(),
		Health:  health,
	})
	if err != nil {
		return fmt.Errorf("failed to create web UI: %w", err)
	}

	metricsServer, err := c.startMetrics(log)
	if err != nil {
		return err
	}
	defer func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("error during metrics server shutdown", logging.Err(err))
		}
	}()

	l, err := net.Listen("tcp", c.cfg.Web.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.cfg.Web.Addr, err)
	}
	srv := &http.Server{
		Handler:           ui.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()
	log.Info("web UI listening", slog.String("url", "http://"+l.Addr().String()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping web UI")
		health.SetShuttingDown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down web UI: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("web UI stopped with error: %w", err)
		}
	}

	log.Info("web UI gracefully stopped")
	return nil
}

// startMetrics starts the dedicated metrics server when metrics are enabled
// and exported to Prometheus. It returns nil when no server is started.
func (c *cli) startMetrics(log *slog.Logger) (*server.MetricsServer, error) {
	if !c.cfg.Metrics.Enabled || !c.provider.Enabled() || !c.provider.PrometheusEnabled() {
		log.Debug("metrics server disabled")
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    c.cfg.Metrics.Addr,
		InstrumentationProvider: c.provider,
		Logger:                  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	l, err := net.Listen("tcp", metricsServer.Addr())
	if err != nil {
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	}
	go func() {
		if err := metricsServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", logging.Err(err))
		}
	}()
	return metricsServer, nil
}

// apiReachable reports the API as healthy when its base URL answers at all.
// Any HTTP status counts; only transport errors fail.
func apiReachable(baseURL string) server.CheckFunc {
	client := &http.Client{}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}
}

// decodeCSRFKey accepts a hex or base64 encoded 32-byte key. An empty value
// yields a random key, which invalidates open forms on restart.
func decodeCSRFKey(s string) ([]byte, error) {
	if s == "" {
		key := make([]byte, web.CSRFKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate csrf key: %w", err)
		}
		return key, nil
	}

	if key, err := hex.DecodeString(s); err == nil && len(key) == web.CSRFKeyLength {
		return key, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(s); err == nil && len(key) == web.CSRFKeyLength {
			return key, nil
		}
	}
	return nil, fmt.Errorf("csrf key must be %d bytes, hex or base64 encoded", web.CSRFKeyLength)
}

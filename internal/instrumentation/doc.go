// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for schedcli.
//
// # Metrics
//
// Schedule API client:
//   - api_requests_total: Counter of API requests by method, templated endpoint and status
//   - api_request_duration_seconds: Histogram of API round-trip durations
//
// Sessions:
//   - session_logins_total: Counter of login attempts by result
//   - active_sessions: Gauge of logged-in sessions held by the process
//
// Web UI:
//   - http_requests_total: Counter of HTTP requests by method, route and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Endpoint labels pass through TemplateEndpoint so user and entry ids never
// become label values.
//
// # Tracing
//
// Spans are created for each schedule API operation (api.<operation>) and,
// through otelhttp, for every outgoing and incoming HTTP request.
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: schedcli)
//   - AUDIT_LOGGING_ENABLED: Emit action audit records (default: true)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordAPIRequest(ctx, "GET", "/users/3/schedules", 200, time.Since(start))
package instrumentation

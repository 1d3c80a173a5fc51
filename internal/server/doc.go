// Package server provides the health checker and the dedicated Prometheus
// metrics server used by `schedcli serve`.
//
// HealthChecker exposes /healthz (liveness), /readyz (readiness) and
// /healthz/detailed on the web UI router. Readiness turns unavailable while
// the process shuts down or when a registered check, such as reaching the
// scheduling API, fails.
//
// MetricsServer serves /metrics on its own address so operational metrics
// stay off the UI listener.
package server

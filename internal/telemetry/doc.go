// Package telemetry builds the process-wide logger, Prometheus
// registerer, and OpenTelemetry tracer provider from config.Config,
// following SPEC_FULL.md §2.1/§2.5: one *zap.Logger built once in
// cmd/replicore and threaded down as a plain constructor argument to
// every component, exactly as the teacher threads its *http.Client and
// check interval into HealthMonitor.
package telemetry

package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/config"
	"github.com/replicante-io/replicore/internal/rcerror"
)

// NewLogger builds the process-wide *zap.Logger from config.LoggingConfig.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Mode == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level := zap.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, rcerror.Wrap(rcerror.Deserialize, err, "parse logging.level %q", cfg.Level)
		}
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	log, err := zapCfg.Build()
	if err != nil {
		return nil, rcerror.Wrap(rcerror.Deserialize, err, "build zap logger")
	}
	return log, nil
}

// NewRegisterer returns the Prometheus registerer the core's metrics
// (replicore_cluster_refresh_duration, _locked, replicore_discovery_*,
// replicore_tasks_kafka_*) register against. The default registry is
// used, matching promauto's package-level default in internal/refresh
// and internal/tasks.
func NewRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// InitTracing wires an OpenTelemetry TracerProvider backed by a Jaeger
// exporter when tracing is enabled, and installs it as the global
// provider so every package's otel.Tracer(...) call picks it up. When
// tracing is disabled it installs the SDK's no-op provider explicitly,
// so behaviour does not depend on otel's own default.
func InitTracing(ctx context.Context, cfg config.TracingConfig) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())))
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := jaeger.New(jaeger.WithAgentEndpoint(jaeger.WithAgentHost(cfg.JaegerAgent)))
	if err != nil {
		return nil, rcerror.Wrap(rcerror.Deserialize, err, "build jaeger exporter for agent %q", cfg.JaegerAgent)
	}

	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(cfg.ServiceName))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/agencyflow/internal/observability/logger"
	"github.com/smallbiznis/agencyflow/internal/observability/metrics"
	"github.com/smallbiznis/agencyflow/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the logger, the tracer and meter providers, and the
// instruments the services record into.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(cfg Config) logger.Config {
			return logger.Config{
				ServiceName:         cfg.ServiceName,
				Environment:         cfg.Environment,
				Version:             cfg.Version,
				Level:               cfg.LogLevel,
				Format:              cfg.LogFormat,
				IncludeCaller:       true,
				IncludeStackOnError: cfg.Debug(),
			}
		},
		logger.New,
		NewGormLogger,
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.OtelEnabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.OtelExporterEndpoint,
				ExporterProtocol: cfg.OtelExporterProtocol,
				SamplingRatio:    cfg.OtelSamplingRatio,
			}
		},
		tracing.NewProvider,
		func(cfg Config) metrics.Config {
			return metrics.Config{
				Enabled:          cfg.OtelEnabled,
				ExporterEndpoint: cfg.OtelExporterEndpoint,
				ExporterProtocol: cfg.OtelExporterProtocol,
				ServiceName:      cfg.ServiceName,
				Environment:      cfg.Environment,
			}
		},
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		func(cfg metrics.Config) *metrics.FanoutMetrics {
			return metrics.NewFanoutMetrics(prometheus.DefaultRegisterer, cfg)
		},
	),
	// The tracer provider has no consumers by type; requesting it installs
	// the global provider.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

// NewGormLogger routes SQL logging through zap.
func NewGormLogger(log *zap.Logger, cfg Config) *logger.GormLogger {
	return logger.NewGormLogger(log, cfg.Debug())
}

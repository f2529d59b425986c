package observability

import (
	"github.com/smallbiznis/gascustody/internal/observability/logger"
	"github.com/smallbiznis/gascustody/internal/observability/metrics"
	"github.com/smallbiznis/gascustody/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires logging, tracing and metrics for every binary.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.loggerConfig,
		Config.tracingConfig,
		Config.metricsConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.JobsWithConfig,
	),
	// The tracer provider has no consumers in the graph; force it so the
	// global propagator and exporter are installed.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func (c Config) loggerConfig() logger.Config {
	debug := c.Debug()
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               debug,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
}

func (c Config) tracingConfig() tracing.Config {
	out := tracing.Config{
		Enabled:        c.OtelEnabled,
		ServiceName:    c.ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		SamplingRatio:  c.OtelSamplingRatio,
	}
	out.ExporterEndpoint, out.ExporterProtocol = c.OtelExporterEndpoint, c.OtelExporterProtocol
	return out
}

func (c Config) metricsConfig() metrics.Config {
	out := metrics.Config{
		Enabled:     c.OtelEnabled,
		ServiceName: c.ServiceName,
		Environment: c.Environment,
	}
	out.ExporterEndpoint, out.ExporterProtocol = c.OtelExporterEndpoint, c.OtelExporterProtocol
	return out
}

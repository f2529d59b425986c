package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/gascustody/internal/config"
)

// Config is the logging and OpenTelemetry setup shared by the API, the
// scheduler and the migrate command.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig starts from the application config and lets the standard OTEL_*
// and LOG_* variables override it. Export is on whenever an OTLP endpoint is
// configured; development samples every trace.
func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName:          strings.TrimSpace(cfg.AppName),
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             "info",
		LogFormat:            "json",
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: "grpc",
		OtelSamplingRatio:    0.1,
	}
	if out.ServiceName == "" {
		out.ServiceName = "gascustody"
	}
	if !cfg.IsProduction() {
		out.OtelSamplingRatio = 1
	}

	if v, ok := lookupEnv("OTEL_SERVICE_NAME"); ok {
		out.ServiceName = v
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		out.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookupEnv("LOG_FORMAT"); ok {
		out.LogFormat = strings.ToLower(v)
	}
	if v, ok := lookupEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		out.OtelExporterEndpoint = v
	}
	if v, ok := lookupEnv("OTEL_EXPORTER_OTLP_PROTOCOL"); ok {
		out.OtelExporterProtocol = strings.ToLower(v)
	}
	if v, ok := lookupEnv("OTEL_TRACES_SAMPLER_ARG"); ok {
		if ratio, err := strconv.ParseFloat(v, 64); err == nil && ratio >= 0 && ratio <= 1 {
			out.OtelSamplingRatio = ratio
		}
	}

	out.OtelEnabled = out.OtelExporterEndpoint != ""
	if v, ok := lookupEnv("OTEL_SDK_DISABLED"); ok {
		if disabled, err := strconv.ParseBool(v); err == nil && disabled {
			out.OtelEnabled = false
		}
	}
	return out
}

// Debug reports whether verbose request logging and stack traces are wanted.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func lookupEnv(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
	// ExportInterval defaults to 10s.
	ExportInterval time.Duration
}

// Metrics holds the domain counters for the GCC billing workflow.
type Metrics struct {
	volumeRecords  metric.Int64Counter
	gccTransitions metric.Int64Counter
	dispatches     metric.Int64Counter
	approvalDenied metric.Int64Counter
}

const defaultExportInterval = 10 * time.Second

// NewProvider installs the global meter provider. With export disabled a noop
// provider is used so instruments can still be created.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	exporter, err := newExporter(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}
	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(func(ctx context.Context) error {
			log.Info("flushing meter provider")
			return provider.Shutdown(ctx)
		}))
	}
	log.Info("metrics export enabled",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
		zap.Duration("interval", interval),
	)
	return provider, nil
}

// New creates the domain counters on the service meter.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "gascustody"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.volumeRecords, "gascustody_volume_records_total", "Daily volume ledger writes"},
		{&m.gccTransitions, "gascustody_gcc_transitions_total", "GCC lifecycle transitions"},
		{&m.dispatches, "gascustody_event_dispatch_total", "Workflow event dispatch outcomes"},
		{&m.approvalDenied, "gascustody_approval_denied_total", "Rejected customer approvals"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

// RecordVolumeRecord counts ledger writes by event type.
func (m *Metrics) RecordVolumeRecord(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.volumeRecords.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGccTransition counts lifecycle transitions.
func (m *Metrics) RecordGccTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
	)
	m.gccTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDispatch counts queue dispatch outcomes.
func (m *Metrics) RecordDispatch(ctx context.Context, queue, eventType, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("queue", strings.TrimSpace(queue)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordApprovalDenied counts rejected customer approvals.
func (m *Metrics) RecordApprovalDenied(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.approvalDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	endpoint := strings.TrimSpace(cfg.ExporterEndpoint)
	switch protocol := strings.ToLower(strings.TrimSpace(cfg.ExporterProtocol)); protocol {
	case "", "grpc", "grpc/protobuf":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"event_type":  {},
	"queue":       {},
	"outcome":     {},
	"from":        {},
	"to":          {},
	"reason":      {},
}

// FilterAttributes keeps only the allow-listed label keys. Customer ids,
// signatures and token material never become metric labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := attrs[:0:0]
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			out = append(out, attr)
		}
	}
	return out
}

package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("customer_id", "123"),
		attribute.String("signature", "jane"),
		attribute.String("queue", "gas-consumption"),
		attribute.String("event_type", "GAS_CONSUMPTION_CREATED"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "customer_id" || attr.Key == "signature" {
			t.Fatalf("unexpected label %q retained", attr.Key)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordVolumeRecord(context.Background(), "created")
	m.RecordGccTransition(context.Background(), "GCCCREATED", "GCCAPPROVEDBYADMIN")
	m.RecordDispatch(context.Background(), "q", "e", "ok")
	m.RecordApprovalDenied(context.Background(), "token")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordGccTransition(context.Background(), "GCCCREATED", "GCCAPPROVEDBYADMIN")
}

package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: JobReasonDeadlineExceeded,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: JobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"}),
			want: JobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: JobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: JobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestJobMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewJobMetrics(registry, Config{ServiceName: "test"})

	m.IncJobRun("gcc_due")
	m.IncJobError("gcc_due", &pgconn.PgError{Code: "40001"})
	m.AddItems("gcc_due", "dispatched", 3)

	if got := testutil.ToFloat64(m.jobRuns.WithLabelValues("gcc_due")); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues("gcc_due", JobReasonSerializationFailure)); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsProcessed.WithLabelValues("gcc_due", "dispatched")); got != 3 {
		t.Fatalf("expected 3 items, got %v", got)
	}
}

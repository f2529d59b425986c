package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUniqueViolation      = "unique_violation"
	JobReasonUnknown              = "unknown"
)

// JobMetrics captures scheduler job health.
type JobMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	itemsProcessed *prometheus.CounterVec
}

var (
	jobMetricsOnce sync.Once
	jobMetrics     *JobMetrics
)

// Jobs returns the singleton job metrics registered on the default registry.
func Jobs() *JobMetrics {
	return JobsWithConfig(Config{})
}

// JobsWithConfig returns the singleton job metrics using config labels.
func JobsWithConfig(cfg Config) *JobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetrics = NewJobMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return jobMetrics
}

func NewJobMetrics(registerer prometheus.Registerer, cfg Config) *JobMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := serviceLabels(cfg)

	m := &JobMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gascustody_scheduler_job_runs_total",
			Help:        "Scheduler job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "gascustody_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gascustody_scheduler_job_timeouts_total",
			Help:        "Scheduler job timeouts.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gascustody_scheduler_job_errors_total",
			Help:        "Scheduler job errors by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		itemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gascustody_scheduler_items_processed_total",
			Help:        "Items handled by scheduler jobs.",
			ConstLabels: constLabels,
		}, []string{"job", "outcome"}),
	}

	registerOrReuse(registerer, m.jobRuns)
	registerOrReuse(registerer, m.jobDuration)
	registerOrReuse(registerer, m.jobTimeouts)
	registerOrReuse(registerer, m.jobErrors)
	registerOrReuse(registerer, m.itemsProcessed)

	return m
}

func registerOrReuse(registerer prometheus.Registerer, collector prometheus.Collector) {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return
		}
		panic(err)
	}
}

func (m *JobMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *JobMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *JobMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *JobMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
}

func (m *JobMetrics) AddItems(job, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsProcessed.WithLabelValues(job, outcome).Add(float64(n))
}

// ClassifyJobReason maps an error to a low-cardinality reason label.
func ClassifyJobReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return JobReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return JobReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return JobReasonDBLockTimeout
		case "40001":
			return JobReasonSerializationFailure
		case "23505":
			return JobReasonUniqueViolation
		}
	}
	return JobReasonUnknown
}

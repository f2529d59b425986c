package scheduler

import (
	"context"
	"fmt"
	"time"

	obscontext "github.com/smallbiznis/gascustody/internal/observability/context"
	obslogger "github.com/smallbiznis/gascustody/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gascustody/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun tracks one execution of a scheduled job. Everything it logs carries
// the job name and a run id so a single sweep can be followed across sites.
type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time
	log       *zap.Logger

	processed int
	failed    int
}

type jobRunKey struct{}

func (s *Scheduler) startJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun) {
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	run.log = obslogger.WithContext(ctx, s.log).With(
		zap.String("job", job),
		zap.String("run_id", run.runID),
	)
	return context.WithValue(ctx, jobRunKey{}, run), run
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

// logger returns the run logger when ctx belongs to a job run.
func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	if run := jobRunFromContext(ctx); run != nil {
		return run.log
	}
	return obslogger.WithContext(ctx, s.log)
}

func (r *jobRun) done(n int) {
	if r != nil && n > 0 {
		r.processed += n
	}
}

func (r *jobRun) logStart() {
	if r == nil {
		return
	}
	r.log.Info("scheduler.job.start", zap.Int("batch_size", r.batchSize))
}

func (r *jobRun) logFinish(now time.Time) {
	if r == nil {
		return
	}
	level := zap.InfoLevel
	if r.failed > 0 {
		level = zap.WarnLevel
	}
	r.log.Check(level, "scheduler.job.finish").Write(
		zap.Int64("duration_ms", now.Sub(r.startedAt).Milliseconds()),
		zap.Int("processed_count", r.processed),
		zap.Int("error_count", r.failed),
	)
}

// fail counts err against the run and logs it with its classified reason.
func (r *jobRun) fail(msg string, err error, fields ...zap.Field) {
	if r == nil || err == nil {
		return
	}
	r.failed++
	fields = append(fields,
		zap.String("reason", obsmetrics.ClassifyJobReason(err)),
		zap.Error(err),
	)
	r.log.Error(msg, fields...)
}

// cronLogger adapts zap to cron.Logger. Cron's own info chatter goes to debug.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron."+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron."+msg, append(kvFields(keysAndValues), zap.Error(err))...)
}

func kvFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 1; i < len(kv); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(kv[i-1]), kv[i]))
	}
	return fields
}

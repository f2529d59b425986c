package scheduler

import (
	"context"

	"go.uber.org/zap"
)

const jobLockPrefix = "gascustody:scheduler:"

// acquireJobLock takes the cluster-wide lock for job. Without redis every
// replica runs the job and acquired is always true.
func (s *Scheduler) acquireJobLock(ctx context.Context, job string) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	return s.locker.Acquire(ctx, jobLockPrefix+job, s.cfg.LockTTL, func(err error) {
		s.log.Warn("failed to release job lock", zap.String("job", job), zap.Error(err))
	})
}

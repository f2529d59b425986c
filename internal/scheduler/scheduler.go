package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/gascustody/internal/aggregation"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"github.com/smallbiznis/gascustody/internal/events"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	obsmetrics "github.com/smallbiznis/gascustody/internal/observability/metrics"
	"github.com/smallbiznis/gascustody/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobGccDue = "gcc_due"

var (
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
	ErrInvalidSpec   = errors.New("invalid_cron_spec")
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Billing    *config.BillingConfigHolder
	Customers  customerdomain.Service
	Gccs       gccdomain.Service
	Dispatcher *events.Dispatcher     `optional:"true"`
	Redis      redis.UniversalClient  `optional:"true"`
	Jobs       *obsmetrics.JobMetrics `optional:"true"`
	Config     Config                 `optional:"true"`
}

type siteLister interface {
	ListAllSites(ctx context.Context, afterID snowflake.ID, limit int) ([]customerdomain.CustomerSite, error)
}

type initiator interface {
	Initiate(ctx context.Context, req gccdomain.InitiateRequest) (gccdomain.InitiateResult, error)
}

// GccDuePayload announces a site with ledger rows for the previous month and
// no certificate yet.
type GccDuePayload struct {
	CustomerID         string    `json:"customer_id"`
	CustomerSiteID     string    `json:"customer_site_id"`
	SiteName           string    `json:"site_name"`
	PeriodStart        time.Time `json:"period_start"`
	PeriodEnd          time.Time `json:"period_end"`
	TotalQuantityOfGas float64   `json:"total_quantity_of_gas"`
	Count              int       `json:"count"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	sites      siteLister
	gccs       initiator
	dispatcher *events.Dispatcher
	locker     *ratelimit.Locker
	jobs       *obsmetrics.JobMetrics
	cron       *cron.Cron
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Customers == nil || p.Gccs == nil {
		return nil, ErrInvalidConfig
	}
	loc := time.UTC
	if p.Billing != nil {
		loc = p.Billing.Get().Location()
	}

	s := &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		sites:      p.Customers,
		gccs:       p.Gccs,
		dispatcher: p.Dispatcher,
		locker:     ratelimit.NewLocker(p.Redis),
		jobs:       p.Jobs,
	}

	logger := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(s.cfg.GccDueSpec, func() {
		if err := s.RunGccDue(context.Background()); err != nil {
			s.log.Warn("scheduler run failed", zap.String("job", JobGccDue), zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, s.cfg.GccDueSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() error {
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("gcc_due_spec", s.cfg.GccDueSpec))
	return nil
}

// Stop waits for running jobs to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) RunGccDue(ctx context.Context) error {
	return s.runJob(ctx, JobGccDue, s.cfg.BatchSize, s.cfg.JobTimeout, s.GccDueJob)
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	release, acquired, err := s.acquireJobLock(ctx, name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !acquired {
		s.log.Info("scheduler.job.skipped", zap.String("job", name), zap.String("reason", "locked"))
		return nil
	}
	defer release()

	ctx, run := s.startJobRun(ctx, name, batchSize)
	run.logStart()
	s.jobs.IncJobRun(name)

	err = fn(ctx)
	s.jobs.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil && run.failed == 0 {
		run.failed++
	}
	run.logFinish(s.clock.Now())
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.jobs.IncJobTimeout(name)
	}
	s.jobs.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// GccDueJob walks every customer site and announces those whose previous month
// has ledger rows but no certificate.
func (s *Scheduler) GccDueJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	var jobErr error
	var afterID snowflake.ID

	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}

		sites, err := s.sites.ListAllSites(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(sites) == 0 {
			break
		}

		for _, site := range sites {
			due, err := s.checkSite(ctx, site)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				s.jobs.AddItems(JobGccDue, "failed", 1)
				run.fail("scheduler.site.failed", err,
					zap.String("customer_id", site.CustomerID.String()),
					zap.String("customer_site_id", site.ID.String()),
				)
				continue
			}
			run.done(1)
			if due {
				s.jobs.AddItems(JobGccDue, "dispatched", 1)
			} else {
				s.jobs.AddItems(JobGccDue, "skipped", 1)
			}
		}

		afterID = sites[len(sites)-1].ID
		if len(sites) < s.cfg.BatchSize {
			break
		}
	}

	return jobErr
}

func (s *Scheduler) checkSite(ctx context.Context, site customerdomain.CustomerSite) (bool, error) {
	result, err := s.gccs.Initiate(ctx, gccdomain.InitiateRequest{
		CustomerID:     site.CustomerID.String(),
		CustomerSiteID: site.ID.String(),
	})
	if err != nil {
		return false, err
	}
	if result.Gcc != nil {
		return false, nil
	}
	rows, _ := result.ListItem.([]dailyvolumedomain.DailyVolume)
	if len(rows) == 0 {
		return false, nil
	}

	summary := aggregation.Summarize(rows)
	s.dispatcher.Dispatch(ctx, events.GccDue, site.ID.String(), GccDuePayload{
		CustomerID:         site.CustomerID.String(),
		CustomerSiteID:     site.ID.String(),
		SiteName:           site.Name,
		PeriodStart:        result.Window.Start,
		PeriodEnd:          result.Window.End,
		TotalQuantityOfGas: summary.TotalQuantityOfGas,
		Count:              summary.Count,
	})
	s.logger(ctx).Info("scheduler.gcc.due",
		zap.String("customer_site_id", site.ID.String()),
		zap.Int("count", summary.Count),
	)
	return true, nil
}

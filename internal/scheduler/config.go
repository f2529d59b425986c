package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/gascustody/internal/config"
)

// Config controls the cron specs, timeouts and batch sizes of scheduler jobs.
type Config struct {
	Enabled    bool
	GccDueSpec string
	JobTimeout time.Duration
	BatchSize  int
	LockTTL    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		GccDueSpec: "0 6 1 * *",
		JobTimeout: 10 * time.Minute,
		BatchSize:  100,
		LockTTL:    15 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:    cfg.Scheduler.Enabled,
		GccDueSpec: cfg.Scheduler.GccDueSpec,
		JobTimeout: cfg.Scheduler.JobTimeout,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.GccDueSpec) == "" {
		c.GccDueSpec = defaults.GccDueSpec
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

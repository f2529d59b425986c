package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/gascustody/internal/config"
	"go.uber.org/zap"
)

const (
	keyGccTransitionLock    = "gcc:transition:lock:%s"
	keyCustomerApprovalRate = "gcc:approval:rate:%s:%s"
)

var (
	ErrTransitionInProgress = errors.New("transition_in_progress")
	ErrRateLimited          = errors.New("rate_limited")
)

// GccGuard serialises lifecycle transitions per GCC and throttles the public
// customer approval endpoint. A nil or disabled guard allows everything.
type GccGuard struct {
	log    *zap.Logger
	locker *Locker
	bucket *TokenBucket

	lockTTL       time.Duration
	approvalRate  float64
	approvalBurst int
}

func NewGccGuard(cfg config.Config, client redis.UniversalClient, log *zap.Logger) *GccGuard {
	if client == nil {
		return nil
	}
	lockTTL := cfg.Redis.TransitionLockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &GccGuard{
		log:           log.Named("ratelimit.gcc"),
		locker:        NewLocker(client),
		bucket:        NewTokenBucket(client),
		lockTTL:       lockTTL,
		approvalRate:  cfg.Redis.ApprovalRate,
		approvalBurst: cfg.Redis.ApprovalBurst,
	}
}

func (g *GccGuard) Enabled() bool {
	return g != nil && g.locker != nil
}

// AcquireTransition holds the transition lock for gccID until release is called.
func (g *GccGuard) AcquireTransition(ctx context.Context, gccID string) (func(), error) {
	if !g.Enabled() {
		return func() {}, nil
	}

	key := fmt.Sprintf(keyGccTransitionLock, strings.TrimSpace(gccID))
	unlock, held, err := g.locker.Acquire(ctx, key, g.lockTTL, func(err error) {
		g.log.Warn("release transition lock failed", zap.String("gcc_id", gccID), zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, ErrTransitionInProgress
	}
	return unlock, nil
}

// AllowCustomerApproval throttles approval attempts per GCC and client address.
func (g *GccGuard) AllowCustomerApproval(ctx context.Context, gccID, clientIP string) (*RateLimitResult, error) {
	if !g.Enabled() || g.approvalRate <= 0 || g.approvalBurst <= 0 {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyCustomerApprovalRate, strings.TrimSpace(gccID), strings.TrimSpace(clientIP))
	return g.bucket.Allow(ctx, key, g.approvalRate, g.approvalBurst)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledGuardAllowsEverything(t *testing.T) {
	var guard *GccGuard
	assert.False(t, guard.Enabled())

	release, err := guard.AcquireTransition(context.Background(), "1")
	require.NoError(t, err)
	release()

	res, err := guard.AllowCustomerApproval(context.Background(), "1", "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilClientBuildsNothing(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
	assert.Nil(t, NewTokenBucket(nil))

	var locker *Locker
	_, _, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, errLockNotConfigured)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))

	unlock, held, err := locker.Acquire(context.Background(), "k", time.Second, nil)
	assert.ErrorIs(t, err, errLockNotConfigured)
	assert.False(t, held)
	assert.Nil(t, unlock)
}

func TestBucketResult(t *testing.T) {
	denied := bucketResult([]interface{}{int64(0), "0.5"}, 0.5, 5)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 5, denied.Limit)
	assert.Equal(t, time.Second, denied.RetryAfter)

	allowed := bucketResult([]interface{}{int64(1), "3.75"}, 1, 5)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 3, allowed.Remaining)
	assert.Zero(t, allowed.RetryAfter)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 50*time.Second, bucketTTL(0.2, 5))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}

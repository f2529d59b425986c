package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeToken refills the bucket from the elapsed server time and takes one
// token if available. Lua truncates numbers on return, so the remaining
// balance is sent back as a string.
var takeToken = redis.NewScript(`
local rate, burst, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3])
local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now
if now > last then
  tokens = math.min(burst, tokens + (now - last) * rate / 1000)
end

local ok = 0
if tokens >= 1 then
  ok = 1
  tokens = tokens - 1
end
redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {ok, tostring(tokens)}
`)

var (
	errBucketNotConfigured = errors.New("rate limiter not configured")
	errBucketKey           = errors.New("rate limiter key is empty")
	errBucketShape         = errors.New("rate limiter rate and burst must be positive")
)

// TokenBucket is a redis backed token bucket shared by every API replica.
type TokenBucket struct {
	client redis.UniversalClient
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.UniversalClient) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

// Allow takes one token from the bucket at key, refilling at rate tokens per
// second up to burst.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	switch {
	case t == nil || t.client == nil:
		return &RateLimitResult{}, errBucketNotConfigured
	case key == "":
		return &RateLimitResult{}, errBucketKey
	case rate <= 0 || burst <= 0:
		return &RateLimitResult{}, errBucketShape
	}

	reply, err := takeToken.Run(ctx, t.client, []string{key}, rate, burst, bucketTTL(rate, burst).Milliseconds()).Slice()
	if err != nil {
		return &RateLimitResult{}, err
	}
	if len(reply) < 2 {
		return &RateLimitResult{}, fmt.Errorf("rate limiter: unexpected reply %v", reply)
	}
	return bucketResult(reply, rate, burst), nil
}

func bucketResult(reply []interface{}, rate float64, burst int) *RateLimitResult {
	out := &RateLimitResult{Limit: burst}
	if n, ok := reply[0].(int64); ok && n == 1 {
		out.Allowed = true
	}

	var remaining float64
	if s, ok := reply[1].(string); ok {
		remaining, _ = strconv.ParseFloat(s, 64)
	}
	out.Remaining = int(math.Floor(remaining))
	if !out.Allowed && remaining < 1 {
		out.RetryAfter = time.Duration((1 - remaining) / rate * float64(time.Second))
	}
	return out
}

// bucketTTL keeps idle buckets for twice the time a full refill takes.
func bucketTTL(rate float64, burst int) time.Duration {
	return time.Duration(max(math.Ceil(2*float64(burst)/rate), 1)) * time.Second
}

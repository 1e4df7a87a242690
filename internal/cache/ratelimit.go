package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	// rateLimitIPPrefix is the Redis key prefix for IP rate limits.
	rateLimitIPPrefix = keyPrefix + "ratelimit:ip:"
	// rateLimitIPTTL is the TTL for IP rate limit keys.
	rateLimitIPTTL = 10 * time.Second
	// localIdleTTL is how long an unused in-process bucket is kept.
	localIdleTTL = 5 * time.Minute
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter decides whether a request from ip may proceed.
// Scope separates budgets, so login attempts do not consume upload budget.
type Limiter interface {
	Allow(ctx context.Context, scope, ip string) (*RateLimitResult, error)
}

// tokenBucketScript refills and consumes one token atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	tokens = math.min(burst, tokens + ((now - last_update) * rate))

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// RedisLimiter is a per-IP token bucket shared by every instance using the same Redis.
type RedisLimiter struct {
	cache *Cache
	rps   int
	burst int
}

// NewRedisLimiter creates a RedisLimiter allowing rps requests per second with burst.
func NewRedisLimiter(c *Cache, rps, burst int) *RedisLimiter {
	return &RedisLimiter{cache: c, rps: rps, burst: burst}
}

// Allow consumes one token for ip in scope.
// IPs are hashed so raw addresses are never stored.
func (l *RedisLimiter) Allow(ctx context.Context, scope, ip string) (*RateLimitResult, error) {
	res, err := tokenBucketScript.Run(ctx, l.cache.client,
		[]string{rateLimitKey(scope, ip)},
		l.rps, l.burst, time.Now().Unix(), int(rateLimitIPTTL.Seconds()),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("run token bucket: %w", err)
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Second,
		Remaining:  res[2],
	}, nil
}

// LocalLimiter is an in-process per-IP limiter used when Redis is not configured.
type LocalLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*localBucket
	swept   time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates a LocalLimiter allowing rps requests per second with burst.
func NewLocalLimiter(rps, burst int) *LocalLimiter {
	return &LocalLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*localBucket),
	}
}

// Allow consumes one token for ip in scope.
func (l *LocalLimiter) Allow(ctx context.Context, scope, ip string) (*RateLimitResult, error) {
	now := l.now()
	key := rateLimitKey(scope, ip)

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	if now.Sub(l.swept) > localIdleTTL {
		l.sweepLocked(now)
	}
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return &RateLimitResult{Allowed: false, RetryAfter: time.Second}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &RateLimitResult{
			Allowed:    false,
			RetryAfter: time.Duration(math.Ceil(delay.Seconds())) * time.Second,
		}, nil
	}

	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(b.limiter.TokensAt(now)),
	}, nil
}

// sweepLocked drops buckets idle for longer than localIdleTTL.
func (l *LocalLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > localIdleTTL {
			delete(l.buckets, key)
		}
	}
	l.swept = now
}

// rateLimitKey builds the bucket key for ip in scope.
func rateLimitKey(scope, ip string) string {
	return rateLimitIPPrefix + scope + ":" + hashIP(ip)
}

// hashIP creates a truncated SHA256 hash of an IP address.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}

package httpmiddleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] bucket; ARGV: refill rate per second, capacity, now (seconds),
// ttl (seconds). Returns {allowed, tokens left}.
var tokenBucket = redis.NewScript(`
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if not tokens or not ts then
	tokens = capacity
	ts = now
end

if now > ts then
	tokens = math.min(capacity, tokens + (now - ts) * rate)
	ts = now
end

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("EXPIRE", KEYS[1], tonumber(ARGV[4]))
return {allowed, tostring(tokens)}
`)

// RedisLimiter is a token bucket shared by every replica through Redis. The
// bucket holds Quota.Max tokens and refills fully over Quota.Window.
type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
	quota  Quota
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a limiter storing buckets under prefix.
func NewRedisLimiter(rdb redis.Scripter, prefix string, q Quota) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, quota: q, now: time.Now}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Verdict, error) {
	now := l.now()
	rate := float64(l.quota.Max) / l.quota.Window.Seconds()
	ttl := int64(math.Ceil(l.quota.Window.Seconds()))

	res, err := tokenBucket.Run(ctx, l.rdb, []string{l.prefix + key},
		rate, l.quota.Max, float64(now.UnixMicro())/1e6, ttl,
	).Slice()
	if err != nil {
		return Verdict{}, errors.Wrap(err, "token bucket")
	}
	if len(res) != 2 {
		return Verdict{}, errors.Errorf("token bucket: unexpected reply %v", res)
	}

	allowed, _ := res[0].(int64)
	var tokens float64
	if s, ok := res[1].(string); ok {
		if tokens, err = strconv.ParseFloat(s, 64); err != nil {
			return Verdict{}, errors.Wrap(err, "token bucket: tokens")
		}
	}

	missing := float64(l.quota.Max) - tokens
	return Verdict{
		Allowed:   allowed == 1,
		Limit:     l.quota.Max,
		Remaining: int(math.Floor(tokens)),
		ResetAt:   now.Add(time.Duration(missing / rate * float64(time.Second))),
	}, nil
}

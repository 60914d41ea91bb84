package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript performs the dual-window check-and-increment atomically on the
// Redis side. Keys carry their own expiry, so windows reset by key
// expiration rather than stored timestamps.
//
// KEYS[1] minute counter, KEYS[2] hour counter.
// ARGV[1] minute limit, ARGV[2] hour limit,
// ARGV[3] minute window ms, ARGV[4] hour window ms.
//
// Returns {allowed, window (1=minute 2=hour), retry_after_ms,
// minute_remaining, hour_remaining}.
var takeScript = redis.NewScript(`
	local mlimit = tonumber(ARGV[1])
	local hlimit = tonumber(ARGV[2])
	local mwin = tonumber(ARGV[3])
	local hwin = tonumber(ARGV[4])

	local mcount = tonumber(redis.call("GET", KEYS[1]) or "0")
	local hcount = tonumber(redis.call("GET", KEYS[2]) or "0")

	if mcount >= mlimit then
		local ttl = redis.call("PTTL", KEYS[1])
		if ttl < 0 then ttl = mwin end
		local hrem = hlimit - hcount
		if hrem < 0 then hrem = 0 end
		return {0, 1, ttl, 0, hrem}
	end
	if hcount >= hlimit then
		local ttl = redis.call("PTTL", KEYS[2])
		if ttl < 0 then ttl = hwin end
		local mrem = mlimit - mcount
		if mrem < 0 then mrem = 0 end
		return {0, 2, ttl, mrem, 0}
	end

	mcount = redis.call("INCR", KEYS[1])
	if mcount == 1 then
		redis.call("PEXPIRE", KEYS[1], mwin)
	end
	hcount = redis.call("INCR", KEYS[2])
	if hcount == 1 then
		redis.call("PEXPIRE", KEYS[2], hwin)
	end

	return {1, 0, 0, mlimit - mcount, hlimit - hcount}
`)

// Redis is a Limiter backed by a shared Redis instance, for multi-process
// deployments where in-process counters would undercount.
type Redis struct {
	client *redis.Client
	limits Limits
	prefix string
}

// NewRedis creates a Redis-backed fixed-window limiter.
func NewRedis(client *redis.Client, limits Limits) *Redis {
	return &Redis{client: client, limits: limits, prefix: "svckit:rl"}
}

// Take implements Limiter.
func (r *Redis) Take(ctx context.Context, key string, _ time.Time) (Result, error) {
	keys := []string{
		fmt.Sprintf("%s:%s:m", r.prefix, key),
		fmt.Sprintf("%s:%s:h", r.prefix, key),
	}
	argv := []interface{}{
		r.limits.PerMinute,
		r.limits.PerHour,
		time.Minute.Milliseconds(),
		time.Hour.Milliseconds(),
	}

	raw, err := takeScript.Run(ctx, r.client, keys, argv...).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 5 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply length %d", len(raw))
	}

	res := Result{
		Allowed:         raw[0] == 1,
		RetryAfter:      time.Duration(raw[2]) * time.Millisecond,
		MinuteRemaining: int(raw[3]),
		HourRemaining:   int(raw[4]),
	}
	switch raw[1] {
	case 1:
		res.Window = WindowMinute
	case 2:
		res.Window = WindowHour
	}
	return res, nil
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// windowCounter is the per-key state for one granularity. count never
// decrements except through reset, and windowStart only moves forward.
type windowCounter struct {
	count       int
	windowStart time.Time
}

// reset clears the counter when now has reached the end of the window. The
// boundary instant itself belongs to the new window.
func (c *windowCounter) reset(now time.Time, length time.Duration) {
	if now.Sub(c.windowStart) >= length {
		c.count = 0
		c.windowStart = now
	}
}

func (c *windowCounter) retryAfter(now time.Time, length time.Duration) time.Duration {
	return c.windowStart.Add(length).Sub(now)
}

type entry struct {
	minute windowCounter
	hour   windowCounter
}

// Memory is the in-process Limiter. Entries are created lazily per key and
// never evicted; it is intended for a bounded client population and a single
// process. Multi-process deployments should use the Redis limiter instead.
type Memory struct {
	limits Limits

	mu      sync.Mutex
	entries map[string]*entry
}

// NewMemory creates an in-memory fixed-window limiter with the given limits.
func NewMemory(limits Limits) *Memory {
	return &Memory{
		limits:  limits,
		entries: make(map[string]*entry),
	}
}

// Take implements Limiter. The whole check-and-increment is performed under
// one lock so concurrent requests for the same key never lose updates and a
// window reset can never race with an increment.
func (m *Memory) Take(_ context.Context, key string, now time.Time) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		e = &entry{
			minute: windowCounter{windowStart: now},
			hour:   windowCounter{windowStart: now},
		}
		m.entries[key] = e
	}

	e.minute.reset(now, time.Minute)
	e.hour.reset(now, time.Hour)

	// Minute is checked first so minute violations take precedence in the
	// reported reason.
	if e.minute.count >= m.limits.PerMinute {
		return Result{
			Allowed:         false,
			Window:          WindowMinute,
			RetryAfter:      e.minute.retryAfter(now, time.Minute),
			MinuteRemaining: 0,
			HourRemaining:   remaining(m.limits.PerHour, e.hour.count),
		}, nil
	}
	if e.hour.count >= m.limits.PerHour {
		return Result{
			Allowed:         false,
			Window:          WindowHour,
			RetryAfter:      e.hour.retryAfter(now, time.Hour),
			MinuteRemaining: remaining(m.limits.PerMinute, e.minute.count),
			HourRemaining:   0,
		}, nil
	}

	e.minute.count++
	e.hour.count++

	return Result{
		Allowed:         true,
		MinuteRemaining: remaining(m.limits.PerMinute, e.minute.count),
		HourRemaining:   remaining(m.limits.PerHour, e.hour.count),
	}, nil
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}

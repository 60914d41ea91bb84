// Package ratelimit implements fixed-window request counting over two
// independent windows, one minute and one hour, per client key.
//
// Fixed windows reset the counter at window boundaries rather than
// continuously, so a client can burst up to the full limit at the start of
// every window. That behavior is deliberate; callers wanting smoothing should
// use a different strategy.
package ratelimit

import (
	"context"
	"time"
)

// Window names one of the two counting granularities.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
)

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	if w == WindowHour {
		return time.Hour
	}
	return time.Minute
}

// Limits holds the configured per-window request limits. A limit of zero
// denies every request for that window.
type Limits struct {
	PerMinute int
	PerHour   int
}

// Result is the outcome of a single check-and-increment. On deny, Window
// names the first exhausted window (minute takes precedence over hour) and
// RetryAfter is the time until that window resets. Remaining counts are
// post-increment on allow and zero for the exhausted window on deny.
type Result struct {
	Allowed         bool
	Window          Window
	RetryAfter      time.Duration
	MinuteRemaining int
	HourRemaining   int
}

// Limiter decides whether a request identified by key may proceed at time
// now, atomically incrementing both window counters when it may.
type Limiter interface {
	Take(ctx context.Context, key string, now time.Time) (Result, error)
}

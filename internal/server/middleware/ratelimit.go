package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svckit/svckit/internal/ratelimit"
)

// Rate-limit response headers, present on every limited response whether
// allowed or denied.
const (
	RateLimitLimitMinuteHeader     = "X-RateLimit-Limit-Minute"
	RateLimitRemainingMinuteHeader = "X-RateLimit-Remaining-Minute"
	RateLimitLimitHourHeader       = "X-RateLimit-Limit-Hour"
	RateLimitRemainingHourHeader   = "X-RateLimit-Remaining-Hour"
)

// RateLimitStage enforces the fixed-window limits. On deny it short-circuits
// with 429 and a Retry-After; quota headers are attached on the unwind so
// they appear on allowed and denied responses alike.
type RateLimitStage struct {
	limiter   ratelimit.Limiter
	limits    ratelimit.Limits
	keyFn     ClientKeyFunc
	skipPaths []string
	clock     func() time.Time
	logger    *zap.Logger
}

// NewRateLimitStage creates the rate-limit stage. skipPaths (exact prefix)
// bypass limiting entirely, typically health and metrics probes.
func NewRateLimitStage(limiter ratelimit.Limiter, limits ratelimit.Limits, keyFn ClientKeyFunc, skipPaths []string, logger *zap.Logger) *RateLimitStage {
	return &RateLimitStage{
		limiter:   limiter,
		limits:    limits,
		keyFn:     keyFn,
		skipPaths: skipPaths,
		clock:     time.Now,
		logger:    logger,
	}
}

func (s *RateLimitStage) Name() string { return "rate_limit" }

func (s *RateLimitStage) OnRequest(c *Context, r *http.Request) *Response {
	for _, prefix := range s.skipPaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return nil
		}
	}

	key := s.keyFn(r)
	c.ClientKey = key

	res, err := s.limiter.Take(r.Context(), key, s.clock())
	if err != nil {
		// Fail open: an unreachable counter store must not take the API
		// down with it.
		s.logger.Warn("rate limit check failed",
			zap.String("request_id", c.RequestID),
			zap.String("client_key", key),
			zap.Error(err))
		return nil
	}
	c.RateLimit = &res

	if res.Allowed {
		return nil
	}

	resp := JSON(http.StatusTooManyRequests, map[string]string{
		"detail": fmt.Sprintf("Rate limit exceeded. Too many requests per %s.", res.Window),
	})
	retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	resp.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	return resp
}

func (s *RateLimitStage) OnResponse(c *Context, resp *Response) {
	if c.RateLimit == nil {
		return
	}
	h := resp.Header()
	h.Set(RateLimitLimitMinuteHeader, strconv.Itoa(s.limits.PerMinute))
	h.Set(RateLimitRemainingMinuteHeader, strconv.Itoa(c.RateLimit.MinuteRemaining))
	h.Set(RateLimitLimitHourHeader, strconv.Itoa(s.limits.PerHour))
	h.Set(RateLimitRemainingHourHeader, strconv.Itoa(c.RateLimit.HourRemaining))
}

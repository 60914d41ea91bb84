package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/svckit/svckit/internal/audit"
	"github.com/svckit/svckit/internal/config"
	"github.com/svckit/svckit/internal/ratelimit"
)

func ipKey(r *http.Request) string { return "ip:" + clientIP(r, false) }

func newLimitedPipeline(t *testing.T, limits ratelimit.Limits, now time.Time) (http.Handler, *RateLimitStage) {
	t.Helper()
	stage := NewRateLimitStage(ratelimit.NewMemory(limits), limits, ipKey, []string{"/health"}, zap.NewNop())
	stage.clock = func() time.Time { return now }
	p := New(zap.NewNop(), stage)
	return p.Then(okHandler(t)), stage
}

func limitedRequest(h http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitStageExhaustsMinute(t *testing.T) {
	h, _ := newLimitedPipeline(t, ratelimit.Limits{PerMinute: 2, PerHour: 100}, time.Now())

	first := limitedRequest(h, "/items", "10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get(RateLimitLimitMinuteHeader))
	assert.Equal(t, "1", first.Header().Get(RateLimitRemainingMinuteHeader))
	assert.Equal(t, "100", first.Header().Get(RateLimitLimitHourHeader))
	assert.Equal(t, "99", first.Header().Get(RateLimitRemainingHourHeader))

	second := limitedRequest(h, "/items", "10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get(RateLimitRemainingMinuteHeader))

	third := limitedRequest(h, "/items", "10.0.0.1:5000")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.JSONEq(t, `{"detail": "Rate limit exceeded. Too many requests per minute."}`, third.Body.String())
	assert.Equal(t, "0", third.Header().Get(RateLimitRemainingMinuteHeader))

	retry, err := strconv.Atoi(third.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 60)

	// A different client is counted independently.
	other := limitedRequest(h, "/items", "10.0.0.2:5000")
	assert.Equal(t, http.StatusOK, other.Code)
	assert.Equal(t, "1", other.Header().Get(RateLimitRemainingMinuteHeader))
}

func TestRateLimitStageHourlyDenialNamesWindow(t *testing.T) {
	h, _ := newLimitedPipeline(t, ratelimit.Limits{PerMinute: 100, PerHour: 1}, time.Now())

	assert.Equal(t, http.StatusOK, limitedRequest(h, "/items", "10.0.0.1:5000").Code)
	denied := limitedRequest(h, "/items", "10.0.0.1:5000")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.JSONEq(t, `{"detail": "Rate limit exceeded. Too many requests per hour."}`, denied.Body.String())
}

func TestRateLimitStageSkipsConfiguredPaths(t *testing.T) {
	h, _ := newLimitedPipeline(t, ratelimit.Limits{PerMinute: 0, PerHour: 0}, time.Now())

	rr := limitedRequest(h, "/health", "10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get(RateLimitLimitMinuteHeader))
}

type failingLimiter struct{}

func (failingLimiter) Take(context.Context, string, time.Time) (ratelimit.Result, error) {
	return ratelimit.Result{}, context.DeadlineExceeded
}

func TestRateLimitStageFailsOpen(t *testing.T) {
	limits := ratelimit.Limits{PerMinute: 1, PerHour: 1}
	stage := NewRateLimitStage(failingLimiter{}, limits, ipKey, nil, zap.NewNop())
	h := New(zap.NewNop(), stage).Then(okHandler(t))

	for i := 0; i < 3; i++ {
		rr := limitedRequest(h, "/items", "10.0.0.1:5000")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Header().Get(RateLimitLimitMinuteHeader))
	}
}

// memorySink collects emitted records for assertions.
type memorySink struct {
	mu      sync.Mutex
	records []audit.Record
}

func (s *memorySink) Write(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) all() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *memorySink) waitFor(t *testing.T, n int) []audit.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if recs := s.all(); len(recs) >= n {
			return recs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d audit records, have %d", n, len(s.all()))
	return nil
}

func newAuditPipeline(t *testing.T, next http.Handler) (http.Handler, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	rec := audit.NewRecorder(sink, 16, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rec.Close(ctx)
	})

	stage := NewAuditStage(rec, []string{"POST", "PUT", "DELETE", "PATCH"}, []string{"/health"}, nil)
	p := New(zap.NewNop(), RequestIDStage{}, stage)
	return p.Then(next), sink
}

func TestAuditStageRecordsMutations(t *testing.T) {
	h, sink := newAuditPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/user/", nil)
	req.Header.Set(RequestIDHeader, "audit-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	recs := sink.waitFor(t, 1)
	require.Len(t, recs, 1)
	assert.Equal(t, "audit-1", recs[0].RequestID)
	assert.Equal(t, http.MethodPost, recs[0].Method)
	assert.Equal(t, "/user/", recs[0].Path)
	assert.Equal(t, http.StatusCreated, recs[0].Status)
	assert.GreaterOrEqual(t, recs[0].Duration, time.Duration(0))
}

func TestAuditStageIgnoresReads(t *testing.T) {
	h, sink := newAuditPipeline(t, okHandler(t))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/user/1", nil))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.all())
}

func TestAuditStageSkipsExcludedPaths(t *testing.T) {
	h, sink := newAuditPipeline(t, okHandler(t))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/health", nil))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.all())
}

func TestAuditStageRecordsPanicAsServerFault(t *testing.T) {
	h, sink := newAuditPipeline(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("delete exploded")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/user/9", nil))

	recs := sink.waitFor(t, 1)
	require.Len(t, recs, 1)
	assert.Equal(t, http.MethodDelete, recs[0].Method)
	assert.Equal(t, http.StatusInternalServerError, recs[0].Status)
}

func TestAuditStageEmitsExactlyOnce(t *testing.T) {
	h, sink := newAuditPipeline(t, okHandler(t))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/user/1", nil))
	}

	recs := sink.waitFor(t, 3)
	assert.Len(t, recs, 3)
}

func corsConfig() config.CORSConfig {
	return config.CORSConfig{
		Enabled:     true,
		Origins:     []string{"https://app.example.com"},
		Credentials: true,
		Methods:     []string{"GET", "POST", "PUT", "DELETE"},
		Headers:     []string{"Content-Type", "Authorization"},
		MaxAge:      600,
	}
}

func TestCORSStagePreflight(t *testing.T) {
	h := New(zap.NewNop(), NewCORSStage(corsConfig())).Then(okHandler(t))

	req := httptest.NewRequest(http.MethodOptions, "/user/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "GET, POST, PUT, DELETE", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rr.Header().Get("Access-Control-Max-Age"))
}

func TestCORSStageActualRequest(t *testing.T) {
	h := New(zap.NewNop(), NewCORSStage(corsConfig())).Then(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/user/1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Values("Vary"), "Origin")
}

func TestCORSStageDisallowedOrigin(t *testing.T) {
	h := New(zap.NewNop(), NewCORSStage(corsConfig())).Then(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/user/1", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSStageWildcardWithCredentialsEchoesOrigin(t *testing.T) {
	cfg := corsConfig()
	cfg.Origins = []string{"*"}
	h := New(zap.NewNop(), NewCORSStage(cfg)).Then(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/user/1", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://anything.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestTrustedHostStage(t *testing.T) {
	h := New(zap.NewNop(), NewTrustedHostStage([]string{"api.example.com", "localhost"})).Then(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Host = "api.example.com:8443"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Host = "spoofed.example.com"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"detail": "Invalid host header"}`, rr.Body.String())
}

func TestSecurityHeadersStage(t *testing.T) {
	cfg := config.SecurityConfig{Enabled: true, HSTSEnabled: true, HSTSMaxAge: 31536000}
	h := New(zap.NewNop(), NewSecurityHeadersStage(cfg)).Then(okHandler(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestDefaultClientKey(t *testing.T) {
	secret := []byte("test-secret")
	keyFn := DefaultClientKey(secret, true)

	t.Run("anonymous falls back to remote addr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "192.168.1.7:4242"
		assert.Equal(t, "ip:192.168.1.7", keyFn(req))
	})

	t.Run("forwarded-for head entry wins when trusted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:80"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		assert.Equal(t, "ip:203.0.113.9", keyFn(req))
	})

	t.Run("forwarded-for ignored when untrusted", func(t *testing.T) {
		untrusted := DefaultClientKey(secret, false)
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:80"
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		assert.Equal(t, "ip:10.0.0.1", untrusted(req))
	})

	t.Run("valid bearer token keys by subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:80"
		req.Header.Set("Authorization", "Bearer "+signed)
		assert.Equal(t, "user:user-42", keyFn(req))
	})

	t.Run("garbage token falls back to ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:80"
		req.Header.Set("Authorization", "Bearer not.a.token")
		assert.Equal(t, "ip:10.0.0.1", keyFn(req))
	})
}

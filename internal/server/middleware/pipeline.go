// Package middleware implements the request-scoped middleware pipeline: an
// ordered list of stages composed around a terminal handler. Each stage sees
// the inbound request in registration order and the outbound response in
// reverse order, so the first stage to observe a request is the last to
// touch its response.
package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/svckit/svckit/internal/audit"
	"github.com/svckit/svckit/internal/ratelimit"
)

// Stage is one pipeline interceptor. OnRequest may short-circuit the chain
// by returning a non-nil response; the terminal handler and all later
// stages' OnRequest are then skipped, but every stage already entered
// (including the short-circuiting one) still runs OnResponse as the response
// unwinds. OnResponse must not block on I/O.
type Stage interface {
	Name() string
	OnRequest(c *Context, r *http.Request) *Response
	OnResponse(c *Context, resp *Response)
}

// Context is the per-request state threaded through the stages. It is owned
// exclusively by the single in-flight request and is never shared.
type Context struct {
	RequestID string
	Start     time.Time
	Method    string
	Path      string
	ClientKey string
	Origin    string

	// Audit is the pending record captured on the inbound pass, nil when
	// the request is not flagged for auditing.
	Audit *audit.Record

	// RateLimit is the limiter outcome, nil when the stage is disabled or
	// skipped the path.
	RateLimit *ratelimit.Result
}

type contextKey struct{}

// FromContext returns the pipeline Context for the request, or nil outside
// the pipeline.
func FromContext(ctx context.Context) *Context {
	c, _ := ctx.Value(contextKey{}).(*Context)
	return c
}

// GetRequestID returns the correlation id for the request, or "" outside the
// pipeline.
func GetRequestID(ctx context.Context) string {
	if c := FromContext(ctx); c != nil {
		return c.RequestID
	}
	return ""
}

// Pipeline composes stages around a terminal handler.
type Pipeline struct {
	stages []Stage
	logger *zap.Logger
	clock  func() time.Time
}

// New creates a pipeline. Stage order is execution order for the inbound
// pass.
func New(logger *zap.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, logger: logger, clock: time.Now}
}

// Then wraps the terminal handler, producing a handler that runs the full
// pipeline. It matches the func(http.Handler) http.Handler middleware shape
// so it mounts directly on a chi router.
func (p *Pipeline) Then(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := &Context{Start: p.clock(), Method: r.Method, Path: r.URL.Path}
		r = r.WithContext(context.WithValue(r.Context(), contextKey{}, c))

		resp := NewResponse()
		entered := 0
		var short *Response
		for _, st := range p.stages {
			entered++
			if sc := st.OnRequest(c, r); sc != nil {
				short = sc
				break
			}
		}

		if short != nil {
			resp = short
		} else {
			resp = p.invoke(next, resp, r, c)
		}

		for i := entered - 1; i >= 0; i-- {
			p.stages[i].OnResponse(c, resp)
		}

		resp.flush(w)
	})
}

// invoke runs the terminal handler, converting a panic into a generic
// server-fault response. The fault is logged with full correlation context
// before conversion. Panics inside stages are deliberately not recovered
// here; a stage bug propagates to the transport layer and is fatal to that
// request only.
func (p *Pipeline) invoke(next http.Handler, resp *Response, r *http.Request, c *Context) (out *Response) {
	out = resp
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("handler fault",
				zap.Any("panic", rec),
				zap.String("request_id", c.RequestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.ByteString("stack", debug.Stack()))
			out = JSON(http.StatusInternalServerError, map[string]string{
				"detail": "Internal server error",
			})
		}
	}()
	next.ServeHTTP(resp, r)
	return out
}

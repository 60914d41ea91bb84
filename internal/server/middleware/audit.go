package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/svckit/svckit/internal/audit"
)

// AuditStage captures mutating requests for the compliance trail. A request
// is flagged when its method is in the audited set and its path does not
// start with an excluded prefix; exactly one record is emitted per flagged
// request, on the unwind, with the final status and duration.
type AuditStage struct {
	recorder     *audit.Recorder
	methods      map[string]struct{}
	excludePaths []string
	secret       []byte
	clock        func() time.Time
}

// NewAuditStage creates the audit stage. methods are matched
// case-sensitively against canonical upper-case HTTP methods; exclusion is
// exact-prefix, no pattern language.
func NewAuditStage(recorder *audit.Recorder, methods, excludePaths []string, secret []byte) *AuditStage {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[strings.ToUpper(m)] = struct{}{}
	}
	return &AuditStage{
		recorder:     recorder,
		methods:      set,
		excludePaths: excludePaths,
		secret:       secret,
		clock:        time.Now,
	}
}

func (s *AuditStage) Name() string { return "audit" }

func (s *AuditStage) OnRequest(c *Context, r *http.Request) *Response {
	if _, ok := s.methods[r.Method]; !ok {
		return nil
	}
	for _, prefix := range s.excludePaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return nil
		}
	}

	c.Audit = &audit.Record{
		RequestID: c.RequestID,
		Method:    r.Method,
		Path:      r.URL.Path,
		Actor:     actorFromRequest(r, s.secret),
		At:        s.clock(),
	}
	return nil
}

func (s *AuditStage) OnResponse(c *Context, resp *Response) {
	if c.Audit == nil {
		return
	}
	rec := *c.Audit
	c.Audit = nil

	rec.Status = resp.Status()
	rec.Duration = time.Since(c.Start)
	s.recorder.Emit(rec)
}

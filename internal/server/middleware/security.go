package middleware

import (
	"net/http"
	"strconv"

	"github.com/svckit/svckit/internal/config"
)

// SecurityHeadersStage attaches security-related headers to every response.
type SecurityHeadersStage struct {
	cfg config.SecurityConfig
}

// NewSecurityHeadersStage creates the security-headers stage.
func NewSecurityHeadersStage(cfg config.SecurityConfig) *SecurityHeadersStage {
	return &SecurityHeadersStage{cfg: cfg}
}

func (s *SecurityHeadersStage) Name() string { return "security_headers" }

func (s *SecurityHeadersStage) OnRequest(_ *Context, _ *http.Request) *Response {
	return nil
}

func (s *SecurityHeadersStage) OnResponse(_ *Context, resp *Response) {
	h := resp.Header()
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Content-Security-Policy", "default-src 'self'")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	if s.cfg.HSTSEnabled {
		h.Set("Strict-Transport-Security",
			"max-age="+strconv.Itoa(s.cfg.HSTSMaxAge)+"; includeSubDomains")
	}
}

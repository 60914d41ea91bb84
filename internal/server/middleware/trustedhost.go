package middleware

import (
	"net"
	"net/http"
	"strings"
)

// TrustedHostStage rejects requests whose Host header is not in the allowed
// set. Intended for deployments behind misconfigurable proxies.
type TrustedHostStage struct {
	allowed map[string]struct{}
}

// NewTrustedHostStage creates the trusted-host stage.
func NewTrustedHostStage(allowed []string) *TrustedHostStage {
	set := make(map[string]struct{}, len(allowed))
	for _, h := range allowed {
		set[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	return &TrustedHostStage{allowed: set}
}

func (s *TrustedHostStage) Name() string { return "trusted_host" }

func (s *TrustedHostStage) OnRequest(_ *Context, r *http.Request) *Response {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if _, ok := s.allowed[strings.ToLower(host)]; ok {
		return nil
	}
	return JSON(http.StatusBadRequest, map[string]string{
		"detail": "Invalid host header",
	})
}

func (s *TrustedHostStage) OnResponse(_ *Context, _ *Response) {}

package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/svckit/svckit/internal/config"
)

// CORSStage handles cross-origin requests. Preflight OPTIONS requests
// short-circuit with 204; actual requests get their allow headers on the
// unwind.
type CORSStage struct {
	cfg config.CORSConfig
}

// NewCORSStage creates the CORS stage.
func NewCORSStage(cfg config.CORSConfig) *CORSStage {
	return &CORSStage{cfg: cfg}
}

func (s *CORSStage) Name() string { return "cors" }

func (s *CORSStage) OnRequest(c *Context, r *http.Request) *Response {
	c.Origin = r.Header.Get("Origin")
	if c.Origin == "" {
		return nil
	}

	if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		resp := NewResponse()
		resp.WriteHeader(http.StatusNoContent)
		h := resp.Header()
		if origin := s.allowOrigin(c.Origin); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
			if s.cfg.Credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Methods", s.allowMethods(r))
			h.Set("Access-Control-Allow-Headers", s.allowHeaders(r))
			h.Set("Access-Control-Max-Age", strconv.Itoa(s.cfg.MaxAge))
		}
		return resp
	}

	return nil
}

func (s *CORSStage) OnResponse(c *Context, resp *Response) {
	if c.Origin == "" {
		return
	}
	origin := s.allowOrigin(c.Origin)
	if origin == "" {
		return
	}
	h := resp.Header()
	// Preflight short-circuits already carry their headers.
	if h.Get("Access-Control-Allow-Origin") != "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", origin)
	if origin != "*" {
		h.Add("Vary", "Origin")
	}
	if s.cfg.Credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// allowOrigin resolves the Access-Control-Allow-Origin value for an inbound
// origin, or "" when the origin is not allowed. A wildcard configuration
// echoes the origin when credentials are enabled, since browsers reject
// "*" combined with credentials.
func (s *CORSStage) allowOrigin(origin string) string {
	for _, o := range s.cfg.Origins {
		if o == "*" {
			if s.cfg.Credentials {
				return origin
			}
			return "*"
		}
		if strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

func (s *CORSStage) allowMethods(r *http.Request) string {
	for _, m := range s.cfg.Methods {
		if m == "*" {
			if req := r.Header.Get("Access-Control-Request-Method"); req != "" {
				return req
			}
			return "*"
		}
	}
	return strings.Join(s.cfg.Methods, ", ")
}

func (s *CORSStage) allowHeaders(r *http.Request) string {
	for _, h := range s.cfg.Headers {
		if h == "*" {
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				return req
			}
			return "*"
		}
	}
	return strings.Join(s.cfg.Headers, ", ")
}

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Actor extraction inspects the Authorization header only; full
// authentication and authorization live in the handler layer and are out of
// scope here.

// actorFromRequest returns the subject claim of a verified HS256 bearer
// token, or "" when no secret is configured, no token is present, or the
// token does not verify.
func actorFromRequest(r *http.Request, secret []byte) string {
	if len(secret) == 0 {
		return ""
	}
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	token, err := jwt.Parse(strings.TrimPrefix(header, prefix), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// clientIP extracts the caller address. The X-Forwarded-For head entry is
// only honored when the deployment declares its proxy trustworthy.
func clientIP(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if first, _, found := strings.Cut(xff, ","); found || first != "" {
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// ClientKeyFunc derives the rate-limit subject for a request.
type ClientKeyFunc func(r *http.Request) string

// DefaultClientKey prefers the authenticated principal and falls back to the
// source address.
func DefaultClientKey(secret []byte, trustForwardedFor bool) ClientKeyFunc {
	return func(r *http.Request) string {
		if actor := actorFromRequest(r, secret); actor != "" {
			return "user:" + actor
		}
		return "ip:" + clientIP(r, trustForwardedFor)
	}
}

package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders sets browser hardening headers on every response.
type SecurityHeaders struct {
	secure bool
	csp    string
}

func NewSecurityHeaders(secure bool) *SecurityHeaders {
	return &SecurityHeaders{secure: secure, csp: contentSecurityPolicy()}
}

func contentSecurityPolicy() string {
	directives := []string{
		"default-src 'self'",
		"script-src 'self' https://maps.googleapis.com",
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
		"font-src 'self' https://fonts.gstatic.com data:",
		"img-src 'self' data: https://maps.gstatic.com https://maps.googleapis.com",
		"connect-src 'self' https://maps.googleapis.com",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self' https://accounts.google.com",
	}
	return strings.Join(directives, "; ")
}

func (s *SecurityHeaders) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// The web client reads the device position for alerts and pings.
		h.Set("Permissions-Policy", "geolocation=(self), microphone=(), camera=()")
		h.Set("Content-Security-Policy", s.csp)

		if s.secure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

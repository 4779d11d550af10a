package ratelimiter

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// KeyFunc extracts a rate limit key from the request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByRemoteIP keys requests by the host part of RemoteAddr.
func ByRemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with denied. Store failures
// let the request through.
func Middleware(l *Limiter, keyFunc KeyFunc, denied http.HandlerFunc) func(http.Handler) http.Handler {
	if denied == nil {
		denied = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				l.logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					logger.Component("ratelimiter"),
					logger.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				retry := int(time.Until(res.ResetAt).Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(1, retry)))
				denied(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

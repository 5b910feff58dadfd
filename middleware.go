package guard

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/giantswarm/mcp-guard/security"
)

// Middleware wraps an HTTP handler with request admission: it derives the
// caller identifier, runs the rate limit decision, and rejects throttled
// callers with 429 and retry timing. Request IDs are generated or
// propagated for audit correlation.
//
// Identifier derivation prefers the bearer credential hash over the client
// IP, so authenticated callers are throttled per key rather than per
// address.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	admission := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := g.callerIdentifier(r)

		decision := g.CheckRateLimit(r.Context(), identifier)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})

	return security.RequestIDMiddleware(admission)
}

// callerIdentifier derives the per-request caller identifier: the hash of
// the bearer credential when present, otherwise the client IP.
func (g *Guard) callerIdentifier(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			return security.CallerFromAPIKey(token)
		}
	}
	return security.GetClientIP(r, g.config.TrustProxy, g.config.TrustedProxyCount)
}

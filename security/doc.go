// Package security implements the request-admission and data-protection
// layer: sliding-window rate limiting with violation escalation, API key
// strength validation, defensive input sanitization, authenticated payload
// encryption, and severity-tagged audit logging.
//
// # Rate Limiting
//
// The SlidingWindowLimiter tracks per-identifier request timestamps inside a
// moving window and decides admit/reject with enough information for the
// transport layer to set throttling headers. Memory is bounded by LRU
// eviction and a periodic cleanup loop.
//
//	limiter := security.NewSlidingWindowLimiter(security.LimiterConfig{}, auditor, logger)
//	defer limiter.Stop()
//
//	decision := limiter.Check(ctx, clientIP)
//	if !decision.Allowed {
//	    w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
//	    w.WriteHeader(http.StatusTooManyRequests)
//	    return
//	}
//
// # Escalation
//
// Limiter rejections feed the Escalator, which flags identifiers as
// suspicious and, past a violation threshold, emits a critical audit event
// signaling that the identifier should be blocked at the network edge.
// Enforcement is the edge's responsibility, not this package's.
//
// # Encryption
//
// The Encryptor provides AES-256-GCM with an explicit IV/tag payload bound
// to a service-level AAD constant. Decryption fails closed: tampering with
// any part of the payload yields an AuthenticationError, never altered
// plaintext.
package security

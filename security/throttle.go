package security

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// Throttle is a process-wide token-bucket backstop applied before the
// per-identifier sliding window. It bounds aggregate request volume so a
// distributed set of callers, each under its own quota, cannot overwhelm
// the process.
type Throttle struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewThrottle creates a global throttle admitting requestsPerSecond with
// the given burst. A non-positive rate disables throttling (Allow always
// returns true).
func NewThrottle(requestsPerSecond, burst int, logger *slog.Logger) *Throttle {
	if logger == nil {
		logger = slog.Default()
	}

	t := &Throttle{logger: logger}
	if requestsPerSecond > 0 {
		if burst <= 0 {
			burst = requestsPerSecond
		}
		t.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		logger.Debug("Global throttle initialized",
			"rate", requestsPerSecond,
			"burst", burst)
	}
	return t
}

// Allow reports whether the process-wide budget admits another request
func (t *Throttle) Allow() bool {
	if t.limiter == nil {
		return true
	}
	return t.limiter.Allow()
}

// Enabled reports whether throttling is active
func (t *Throttle) Enabled() bool {
	return t.limiter != nil
}

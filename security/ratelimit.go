package security

import (
	"container/list"
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// DefaultWindow is the default sliding-window tracking horizon (15 minutes)
	DefaultWindow = 15 * time.Minute

	// DefaultMaxRequests is the default request quota per window
	DefaultMaxRequests = 100

	// DefaultMaxEntries is the maximum number of identifiers to track
	DefaultMaxEntries = 10000

	// DefaultCleanupInterval is how often the cleanup loop sweeps stale logs
	DefaultCleanupInterval = time.Hour

	// AnonymousIdentifier is the reserved bucket for requests that arrive
	// without a caller identifier. Bucketing them together means
	// unidentified traffic shares one quota and can never bypass limiting.
	AnonymousIdentifier = "anonymous"
)

// Decision is the synchronous outcome of a rate limit check. It carries
// enough information for the transport layer to set client-facing
// throttling headers.
type Decision struct {
	// Allowed reports whether the request may proceed
	Allowed bool

	// Remaining is the number of requests left in the current window
	Remaining int

	// ResetTime is when the oldest tracked attempt leaves the window
	ResetTime time.Time

	// RetryAfter is how long a rejected caller should wait before retrying,
	// rounded up to whole seconds. Zero when Allowed is true.
	RetryAfter time.Duration
}

// RetryAfterSeconds returns RetryAfter as whole seconds for the
// conventional Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	return int(d.RetryAfter / time.Second)
}

// ViolationHandler is invoked on the rejection path, outside the limiter's
// lock, so escalation state can be updated without lock-ordering concerns.
type ViolationHandler func(ctx context.Context, identifier string)

// attemptLog tracks request timestamps for one identifier
type attemptLog struct {
	identifier string
	attempts   []time.Time // admitted attempts within the tracking horizon
	lastAccess time.Time
}

// LimiterConfig holds sliding-window limiter configuration.
// Zero values select the documented defaults.
type LimiterConfig struct {
	// Window is the tracking horizon
	Window time.Duration

	// MaxRequests is the quota per window
	MaxRequests int

	// MaxEntries caps the number of tracked identifiers; least recently
	// used entries are evicted at the cap. Zero means the default cap,
	// negative means unlimited (not recommended).
	MaxEntries int

	// CleanupInterval is how often the background sweep runs
	CleanupInterval time.Duration
}

// SlidingWindowLimiter tracks per-identifier request timestamps inside a
// moving window and decides admit/reject. Memory is bounded by LRU eviction
// and a periodic cleanup loop with an explicit Stop lifecycle.
type SlidingWindowLimiter struct {
	entries map[string]*list.Element // identifier -> list element
	lruList *list.List               // LRU list of *attemptLog
	mu      sync.Mutex

	window          time.Duration
	maxRequests     int
	maxEntries      int
	cleanupInterval time.Duration

	onViolation ViolationHandler
	auditor     *Auditor
	logger      *slog.Logger

	stopCleanup chan struct{}
	stopOnce    sync.Once

	now func() time.Time

	// Statistics
	totalAllowed   int64
	totalRejected  int64
	totalEvictions int64
	totalCleanups  int64
}

// NewSlidingWindowLimiter creates a sliding-window limiter and starts its
// cleanup loop. Call Stop to release the loop on shutdown.
func NewSlidingWindowLimiter(cfg LimiterConfig, auditor *Auditor, logger *slog.Logger) *SlidingWindowLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	l := &SlidingWindowLimiter{
		entries:         make(map[string]*list.Element),
		lruList:         list.New(),
		window:          cfg.Window,
		maxRequests:     cfg.MaxRequests,
		maxEntries:      cfg.MaxEntries,
		cleanupInterval: cfg.CleanupInterval,
		auditor:         auditor,
		logger:          logger,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	go l.cleanupLoop()

	logger.Debug("Sliding window limiter initialized",
		"window", cfg.Window,
		"max_requests", cfg.MaxRequests,
		"max_entries", cfg.MaxEntries)

	return l
}

// OnViolation registers the handler invoked for every rejected check.
// Must be called before concurrent use.
func (l *SlidingWindowLimiter) OnViolation(handler ViolationHandler) {
	l.onViolation = handler
}

// CheckOption overrides window or quota for a single check
type CheckOption func(*checkParams)

type checkParams struct {
	window      time.Duration
	maxRequests int
}

// WithWindow overrides the tracking horizon for one check
func WithWindow(window time.Duration) CheckOption {
	return func(p *checkParams) {
		if window > 0 {
			p.window = window
		}
	}
}

// WithMaxRequests overrides the quota for one check
func WithMaxRequests(maxRequests int) CheckOption {
	return func(p *checkParams) {
		if maxRequests > 0 {
			p.maxRequests = maxRequests
		}
	}
}

// Check decides whether a request from the given identifier is admitted.
// A rejected attempt is not added to the identifier's log, so rejected
// traffic cannot extend its own throttling. An empty identifier is bucketed
// under AnonymousIdentifier.
func (l *SlidingWindowLimiter) Check(ctx context.Context, identifier string, opts ...CheckOption) Decision {
	if identifier == "" {
		identifier = AnonymousIdentifier
	}

	params := checkParams{window: l.window, maxRequests: l.maxRequests}
	for _, opt := range opts {
		opt(&params)
	}

	decision, rejected := l.check(identifier, params)

	if rejected {
		if l.onViolation != nil {
			l.onViolation(ctx, identifier)
		}
		if l.auditor != nil {
			l.auditor.Record(ctx, EventRateLimitViolation, map[string]any{
				"identifier":  identifier,
				"retry_after": decision.RetryAfter.String(),
			})
		}
		l.logger.Warn("Rate limit exceeded",
			"identifier", hashForLogging(identifier),
			"retry_after", decision.RetryAfter)
	}

	return decision
}

// check runs the window algorithm under the limiter lock. Audit and
// escalation side effects happen in Check after the lock is released.
func (l *SlidingWindowLimiter) check(identifier string, params checkParams) (Decision, bool) {
	now := l.now()
	windowStart := now.Add(-params.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	var entry *attemptLog
	if elem, exists := l.entries[identifier]; exists {
		l.lruList.MoveToFront(elem)
		entry = elem.Value.(*attemptLog)
		entry.lastAccess = now

		// Lazy prune: drop timestamps that left the window (in-place)
		n := 0
		for _, ts := range entry.attempts {
			if ts.After(windowStart) {
				entry.attempts[n] = ts
				n++
			}
		}
		entry.attempts = entry.attempts[:n]
	} else {
		if l.maxEntries > 0 && len(l.entries) >= l.maxEntries {
			l.evictLRU()
		}
		entry = &attemptLog{identifier: identifier, lastAccess: now}
		l.entries[identifier] = l.lruList.PushFront(entry)
	}

	if len(entry.attempts) >= params.maxRequests {
		reset := now
		if len(entry.attempts) > 0 {
			reset = entry.attempts[0].Add(params.window)
		}
		l.totalRejected++
		return Decision{
			Allowed:    false,
			Remaining:  0,
			ResetTime:  reset,
			RetryAfter: retryAfter(reset, now),
		}, true
	}

	entry.attempts = append(entry.attempts, now)
	l.totalAllowed++
	return Decision{
		Allowed:   true,
		Remaining: params.maxRequests - len(entry.attempts),
		ResetTime: entry.attempts[0].Add(params.window),
	}, false
}

// retryAfter computes how long to wait until the oldest attempt expires,
// rounded up to whole seconds, floored at zero.
func retryAfter(reset, now time.Time) time.Duration {
	seconds := int(math.Ceil(reset.Sub(now).Seconds()))
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds) * time.Second
}

// evictLRU removes the least recently used entry.
// Must be called with the mutex locked.
func (l *SlidingWindowLimiter) evictLRU() {
	elem := l.lruList.Back()
	if elem == nil {
		return
	}

	entry := elem.Value.(*attemptLog)
	delete(l.entries, entry.identifier)
	l.lruList.Remove(elem)
	l.totalEvictions++

	l.logger.Debug("Sliding window limiter LRU eviction",
		"total_evictions", l.totalEvictions,
		"current_entries", len(l.entries))
}

// cleanupLoop periodically removes stale attempt logs to prevent memory leaks
func (l *SlidingWindowLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// Cleanup eagerly prunes expired timestamps and deletes identifiers whose
// logs are empty and idle. It uses the same lock as the request path, so
// sweeps never produce torn reads.
func (l *SlidingWindowLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)
	removed := 0

	var next *list.Element
	for elem := l.lruList.Front(); elem != nil; elem = next {
		next = elem.Next()
		entry := elem.Value.(*attemptLog)

		n := 0
		for _, ts := range entry.attempts {
			if ts.After(windowStart) {
				entry.attempts[n] = ts
				n++
			}
		}
		entry.attempts = entry.attempts[:n]

		if len(entry.attempts) == 0 && now.Sub(entry.lastAccess) > l.window {
			delete(l.entries, entry.identifier)
			l.lruList.Remove(elem)
			removed++
		}
	}

	if removed > 0 {
		l.totalCleanups++
		l.logger.Debug("Sliding window limiter cleanup completed",
			"removed", removed,
			"remaining", len(l.entries),
			"total_cleanups", l.totalCleanups)
	}
}

// Stop gracefully stops the cleanup goroutine.
// Safe to call multiple times concurrently.
func (l *SlidingWindowLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCleanup)
		l.logger.Debug("Sliding window limiter stopped")
	})
}

// ActiveIdentifiers returns the number of identifiers currently tracked
func (l *SlidingWindowLimiter) ActiveIdentifiers() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// LimiterStats holds limiter statistics for monitoring
type LimiterStats struct {
	CurrentEntries int     // Current number of tracked identifiers
	MaxEntries     int     // Maximum allowed entries (negative = unlimited)
	TotalAllowed   int64   // Total requests admitted
	TotalRejected  int64   // Total requests rejected
	TotalEvictions int64   // Total LRU evictions
	TotalCleanups  int64   // Total cleanup operations that removed entries
	MemoryPressure float64 // Percentage of max capacity used (0-100)
}

// Stats returns current limiter statistics for monitoring and alerting
func (l *SlidingWindowLimiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := LimiterStats{
		CurrentEntries: len(l.entries),
		MaxEntries:     l.maxEntries,
		TotalAllowed:   l.totalAllowed,
		TotalRejected:  l.totalRejected,
		TotalEvictions: l.totalEvictions,
		TotalCleanups:  l.totalCleanups,
	}

	if l.maxEntries > 0 {
		stats.MemoryPressure = float64(stats.CurrentEntries) / float64(l.maxEntries) * 100.0
	}

	return stats
}

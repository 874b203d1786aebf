package http

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	applog "spendtrack/internal/log"
)

// writeLimiter throttles write requests per client IP using a fixed window.
// Reads (the statistics screen polls) are never limited; only the mutating
// expense endpoints go through it.
type writeLimiter struct {
	mu           sync.Mutex
	limit        int
	window       time.Duration
	windows      map[string]*ipWindow
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// ipWindow counts the write requests one client has made in the current window.
type ipWindow struct {
	start time.Time
	count int
}

// newWriteLimiter allows up to limit write requests per client IP per window.
func newWriteLimiter(limit int, window time.Duration) *writeLimiter {
	l := &writeLimiter{
		limit:       limit,
		window:      window,
		windows:     make(map[string]*ipWindow),
		stopCleanup: make(chan struct{}),
	}
	go l.runCleanup()
	return l
}

// runCleanup periodically drops clients whose window has long since closed.
func (l *writeLimiter) runCleanup() {
	ticker := time.NewTicker(5 * l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stopCleanup:
			return
		}
	}
}

// evictIdle removes clients idle for at least ten windows.
func (l *writeLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-10 * l.window)
	evicted := 0
	for ip, w := range l.windows {
		if w.start.Before(cutoff) {
			delete(l.windows, ip)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("Evicted idle rate limit clients",
			applog.FieldComponent, applog.ComponentRateLimit,
			"evicted", evicted,
			"tracked", len(l.windows))
	}
}

// stop shuts down the cleanup goroutine.
func (l *writeLimiter) stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}

// allow reports whether a write from the given IP fits in its current window.
func (l *writeLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[clientIP]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[clientIP] = &ipWindow{start: now, count: 1}
		return true
	}

	w.count++
	if w.count > l.limit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}

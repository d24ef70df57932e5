package http

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// requestClass buckets throttled endpoints by cost. Simulated cloud
// exports burn seconds of artificial latency per call, so they get a
// much smaller per-minute budget than plain data mutations.
type requestClass string

const (
	classMutation requestClass = "mutation"
	classExport   requestClass = "export"
)

// Per client IP per minute.
var classBudgets = map[requestClass]int{
	classMutation: 60,
	classExport:   10,
}

// throttleClass classifies a request for rate limiting. Reads are
// never throttled; endpoints that trigger a simulated upload fall in
// the export class, everything else that writes is a mutation.
func throttleClass(r *http.Request) (requestClass, bool) {
	if r.Method == http.MethodGet {
		return "", false
	}
	p := r.URL.Path
	if strings.HasPrefix(p, "/api/cloud/exports") ||
		strings.HasPrefix(p, "/api/cloud/email") ||
		(r.Method == http.MethodPost && strings.HasPrefix(p, "/api/cloud/shares")) {
		return classExport, true
	}
	return classMutation, true
}

type windowKey struct {
	ip    string
	class requestClass
}

type window struct {
	start time.Time
	count int
}

// rateLimiter tracks fixed one-minute windows per (client IP, class).
// Stale windows are swept inline once the map grows, so no background
// goroutine is needed.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[windowKey]*window
	now     func() time.Time
}

const sweepThreshold = 1024

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		windows: make(map[windowKey]*window),
		now:     time.Now,
	}
}

// allow reports whether the request fits the class budget for this IP.
func (rl *rateLimiter) allow(clientIP string, class requestClass, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.windows) > sweepThreshold {
		rl.sweepLocked(now)
	}

	key := windowKey{ip: clientIP, class: class}
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= time.Minute {
		rl.windows[key] = &window{start: now, count: 1}
		return true
	}

	w.count++
	if w.count > classBudgets[class] {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}

// sweepLocked drops windows stale enough that they can no longer deny
// a request. Callers hold the mutex.
func (rl *rateLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	for key, w := range rl.windows {
		if w.start.Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}

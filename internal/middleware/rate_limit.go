package middleware

import (
	"context"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxLimiters bounds the per-client map; past it the least recently
	// seen half is evicted.
	maxLimiters = 10000
	// cleanupInterval is how often the eviction pass runs.
	cleanupInterval = 5 * time.Minute
	// limiterTTL is how long an idle client keeps its bucket.
	limiterTTL = 15 * time.Minute
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a token bucket per client host. Idle buckets are
// evicted on a timer so the map cannot grow without bound.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	stopCh   chan struct{}
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained
// with the given burst capacity, and starts its eviction loop.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop(context.Background())

	return rl
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops idle buckets, then enforces the hard cap by evicting the
// least recently seen half when a traffic spike created too many.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastAccess) > limiterTTL {
			delete(rl.limiters, key)
		}
	}

	if len(rl.limiters) <= maxLimiters {
		return
	}

	type keyTime struct {
		key  string
		time time.Time
	}
	entries := make([]keyTime, 0, len(rl.limiters))
	for k, e := range rl.limiters {
		entries = append(entries, keyTime{k, e.lastAccess})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})

	for i := 0; i < len(entries)-maxLimiters/2; i++ {
		delete(rl.limiters, entries[i].key)
	}
}

// Stop terminates the eviction loop
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// getLimiter returns the bucket for a client key, creating one on first
// sight and refreshing its access time either way.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	entry, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Another request may have created it while we upgraded the lock
		entry, exists = rl.limiters[key]
		if !exists {
			entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
			rl.limiters[key] = entry
		}
		entry.lastAccess = time.Now()
		rl.mu.Unlock()
		return entry.limiter
	}

	rl.mu.Lock()
	entry.lastAccess = time.Now()
	rl.mu.Unlock()
	return entry.limiter
}

// clientKey extracts the client host from the remote address. RemoteAddr
// includes an ephemeral port, which would give every connection its own
// bucket.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects over-limit requests with the portal's JSON 429
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.getLimiter(clientKey(r)).Allow() {
				http.Error(w, `{"error":"Rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

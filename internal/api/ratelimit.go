package api

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gamelearn/analytics/internal/logger"
)

// mintLimiter applies per-instructor token buckets to the embed mint
// endpoints. Minting signs tokens and is cheap, but an embed grid that
// re-fetches on every filter keystroke can stampede; the client-side cache
// makes bursts above this limit a bug, not a workload.
type mintLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
}

func newMintLimiter(rps float64, burst int) *mintLimiter {
	return &mintLimiter{
		rate:     rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

func (l *mintLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	l.lastSeen[key] = time.Now().UTC()

	// Opportunistic cleanup of idle buckets
	if len(l.limiters) > 1024 {
		cutoff := time.Now().UTC().Add(-10 * time.Minute)
		for k, seen := range l.lastSeen {
			if seen.Before(cutoff) {
				delete(l.limiters, k)
				delete(l.lastSeen, k)
			}
		}
	}

	return limiter.Allow()
}

// middleware rejects requests over the per-instructor limit with 429.
func (l *mintLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _ := GetInstructorID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}
		if !l.allow(key) {
			logger.Ctx(r.Context()).Warn("mint rate limit exceeded", "key", key, "path", r.URL.Path)
			respondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

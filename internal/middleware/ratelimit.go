package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter is a per-client-IP token bucket with eviction of idle entries.
type IPRateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	staleAge time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter allows perMinute requests per IP with the given burst.
// Entries idle for longer than staleAge are dropped by a background goroutine
// until Stop is called.
func NewIPRateLimiter(perMinute float64, burst int, staleAge time.Duration) *IPRateLimiter {
	rl := &IPRateLimiter{
		entries:  make(map[string]*limiterEntry),
		rate:     rate.Limit(perMinute / 60),
		burst:    burst,
		staleAge: staleAge,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup(staleAge / 2)
	return rl
}

func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.entries[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *IPRateLimiter) cleanup(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for ip, e := range rl.entries {
				if now.Sub(e.lastSeen) > rl.staleAge {
					delete(rl.entries, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	retryAfter := "60"
	if rl.rate > 0 {
		retryAfter = strconv.Itoa(int(time.Duration(float64(time.Second)/float64(rl.rate)).Seconds()) + 1)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(utils.ClientIP(r)) {
			w.Header().Set("Retry-After", retryAfter)
			utils.WriteJSONStatus(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests. Please slow down.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

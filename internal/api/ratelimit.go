package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a single token bucket shared by every caller of the
// routes it guards.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	capacity int
	refill   time.Duration
	last     time.Time
	now      func() time.Time
}

// NewRateLimiter creates a bucket holding capacity tokens that regains one
// token every refill.
func NewRateLimiter(capacity int, refill time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   capacity,
		capacity: capacity,
		refill:   refill,
		last:     time.Now(),
		now:      time.Now,
	}
}

// Allow takes a token if one is available.
func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if gained := int(now.Sub(l.last) / l.refill); gained > 0 {
		l.tokens = min(l.capacity, l.tokens+gained)
		l.last = l.last.Add(time.Duration(gained) * l.refill)
	}
	if l.tokens == 0 {
		return false
	}
	l.tokens--
	return true
}

// Middleware rejects requests with 429 once the bucket is empty.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(l.refill/time.Second))))
			WriteProblem(w, r, http.StatusTooManyRequests, "Too many mutation requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

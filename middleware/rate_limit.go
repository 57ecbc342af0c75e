package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// clientWindow tracks request counts from one IP within the current window.
type clientWindow struct {
	Count   int
	FirstAt time.Time
}

// RateLimiter bounds per-IP request rates on the market endpoints so a
// chatty client cannot burn the upstream rate budget for everyone.
type RateLimiter struct {
	mu           sync.Mutex
	windows      map[string]*clientWindow
	maxRequests  int
	windowPeriod time.Duration
}

// NewRateLimiter creates a limiter allowing maxRequests per windowPeriod per
// IP.
func NewRateLimiter(maxRequests int, windowPeriod time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows:      make(map[string]*clientWindow),
		maxRequests:  maxRequests,
		windowPeriod: windowPeriod,
	}
	go rl.startCleanup()
	return rl
}

// startCleanup periodically removes expired windows.
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.cleanup()
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, w := range rl.windows {
		if now.Sub(w.FirstAt) > rl.windowPeriod {
			delete(rl.windows, ip)
		}
	}
}

// Allow records a request from ip and reports whether it fits the budget,
// along with the remaining allowance and, when denied, the wait until the
// window resets.
func (rl *RateLimiter) Allow(ip string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, exists := rl.windows[ip]

	if !exists || now.Sub(w.FirstAt) > rl.windowPeriod {
		rl.windows[ip] = &clientWindow{Count: 1, FirstAt: now}
		return true, rl.maxRequests - 1, 0
	}

	if w.Count >= rl.maxRequests {
		return false, 0, rl.windowPeriod - now.Sub(w.FirstAt)
	}

	w.Count++
	return true, rl.maxRequests - w.Count, 0
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, retryAfter := rl.Allow(c.ClientIP())

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(retryAfter.Seconds()) + 1,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

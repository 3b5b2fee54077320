package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per authenticated user.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*limiterEntry
	interval time.Duration
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows perWindow requests per window for each user. Buckets
// untouched for ten windows are dropped on the next access.
func NewRateLimiter(perWindow int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[int64]*limiterEntry),
		interval: window / time.Duration(perWindow),
		burst:    perWindow,
		idle:     10 * window,
		now:      time.Now,
	}
}

// Allow reports whether userID may proceed now.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	now := rl.now()
	entry, ok := rl.limiters[userID]
	if !ok {
		rl.sweep(now)
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(rl.interval), rl.burst)}
		rl.limiters[userID] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

func (rl *RateLimiter) sweep(now time.Time) {
	threshold := now.Add(-rl.idle)
	for id, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, id)
		}
	}
}

// Middleware rejects requests over the limit with 429. A nil limiter lets
// everything through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil {
			c.Next()
			return
		}
		if !rl.Allow(c.GetInt64(UserIDKey)) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.interval.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
			return
		}
		c.Next()
	}
}

// ratelimit.go throttles authenticated callers with one token bucket per user.
//
// A bucket holds up to limit tokens and refills at limit tokens per hour, so
// a quiet user can burst while a busy one settles at the hourly rate.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// idleBucketTTL is how long an untouched bucket is kept. After an hour a
// bucket is full again anyway, so dropping it changes nothing.
const idleBucketTTL = time.Hour

// RateLimiter tracks request budgets per user.
type RateLimiter struct {
	limit  float64
	perSec float64

	mu      sync.Mutex
	buckets map[int64]*bucket

	now func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// verdict is the outcome of one take, with what the response headers need.
type verdict struct {
	ok         bool
	remaining  int
	retryAfter time.Duration
}

// NewRateLimiter creates a rate limiter allowing limit requests per hour.
// A limit of zero or less disables limiting.
func NewRateLimiter(limit int) *RateLimiter {
	rl := &RateLimiter{
		limit:   float64(limit),
		perSec:  float64(limit) / 3600,
		buckets: make(map[int64]*bucket),
		now:     time.Now,
	}
	if limit > 0 {
		go rl.evictIdle()
	}
	return rl
}

// RateLimit returns Gin middleware enforcing the per-user budget. It must run
// after RequireAuth.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 || rl.limit <= 0 {
			c.Next()
			return
		}

		v := rl.take(userID)
		c.Header("X-RateLimit-Limit", strconv.Itoa(int(rl.limit)))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
		if !v.ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(v.retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.Response{
				Success: false,
				Message: "Rate limit exceeded. Try again later.",
			})
			return
		}
		c.Next()
	}
}

// take refills the user's bucket and spends one token if there is one.
// Refill and spend happen under one lock so the headers match the decision.
func (rl *RateLimiter) take(userID int64) verdict {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[userID]
	if !ok {
		b = &bucket{tokens: rl.limit, lastSeen: now}
		rl.buckets[userID] = b
	}
	b.tokens = math.Min(rl.limit, b.tokens+now.Sub(b.lastSeen).Seconds()*rl.perSec)
	b.lastSeen = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / rl.perSec * float64(time.Second))
		return verdict{retryAfter: wait}
	}
	b.tokens--
	return verdict{ok: true, remaining: int(b.tokens)}
}

func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := rl.now().Add(-idleBucketTTL)
		for id, b := range rl.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(rl.buckets, id)
			}
		}
		rl.mu.Unlock()
	}
}

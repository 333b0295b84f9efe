package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gigwallet/internal/cache"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RateLimiter counts requests per key in fixed windows kept in a cache.Store,
// so every instance sharing a Redis sees the same counts.
type RateLimiter struct {
	store  cache.Store
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(store cache.Store, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, limit: limit, window: window, now: time.Now}
}

// Allow reports whether key may make another request in the current window.
// A cache failure lets the request through.
func (r *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration) {
	now := r.now()
	windowStart := now.Truncate(r.window)
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())
	n, err := r.store.Incr(ctx, bucket)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("rate limit store unavailable")
		return true, 0
	}
	if n == 1 {
		if err := r.store.Expire(ctx, bucket, r.window); err != nil {
			log.WithError(err).WithField("key", key).Warn("rate limit expiry not set")
		}
	}
	if n > int64(r.limit) {
		return false, windowStart.Add(r.window).Sub(now)
	}
	return true, 0
}

// RateLimit limits by authenticated user when known, otherwise by client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if uid := GetUserID(c); uid != 0 {
			key = "user:" + strconv.FormatUint(uint64(uid), 10)
		}
		ok, retry := limiter.Allow(c.Request.Context(), key)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// middleware/rate_limiter.go

package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	logger "github.com/dev-mohitbeniwal/boundary/logging"
)

// limiterCacheSize bounds how many client limiters are tracked at once.
const limiterCacheSize = 4096

// RateLimiter throttles requests per client IP with a token bucket.
// Limiters are kept in a bounded LRU so an address scan cannot grow
// memory without limit.
func RateLimiter(limit int, per time.Duration) gin.HandlerFunc {
	limiters, err := lru.New[string, *rate.Limiter](limiterCacheSize)
	if err != nil {
		logger.Fatal("Failed to create rate limiter cache", zap.Error(err))
	}
	var mu sync.Mutex
	every := rate.Every(per / time.Duration(limit))

	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters.Get(key)
		if !ok {
			limiter = rate.NewLimiter(every, limit)
			limiters.Add(key, limiter)
		}
		mu.Unlock()

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Duration", per.String())

		if !limiter.Allow() {
			logger.Warn("Rate limit exceeded",
				zap.String("ip", key),
				zap.Int("limit", limit),
				zap.Duration("per", per))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v2"
	"golang.org/x/time/rate"
)

// RateLimiterConfig tunes the per-IP limiter on the auth surface.
type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	TTL               time.Duration
}

// RateLimiterMiddleware returns a per-client-IP token-bucket limiter.
// Visitor buckets live in a TTL cache so idle clients age out on their own.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}

	visitors := ttlcache.NewCache()
	visitors.SetTTL(config.TTL)
	visitors.SkipTTLExtensionOnHit(false)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		var limiter *rate.Limiter
		if v, err := visitors.Get(ip); err == nil {
			limiter = v.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
			visitors.Set(ip, limiter)
		}

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}

		c.Next()
	}
}

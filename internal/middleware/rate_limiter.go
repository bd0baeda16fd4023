package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements rate limiting for API endpoints. Mutating ledger
// endpoints get a tighter allowance than general reads.
type RateLimiter struct {
	ipLimiters     map[string]*rate.Limiter
	writeLimiters  map[string]*rate.Limiter
	ipMutex        sync.Mutex
	writeMutex     sync.Mutex
	ipLimiterRate  rate.Limit
	writeRate      rate.Limit
	ipBurst        int
	writeBurst     int
	cleanupTicker  *time.Ticker
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(ipRequestsPerSecond, writeRequestsPerSecond float64, ipBurst, writeBurst int) *RateLimiter {
	limiter := &RateLimiter{
		ipLimiters:    make(map[string]*rate.Limiter),
		writeLimiters: make(map[string]*rate.Limiter),
		ipLimiterRate: rate.Limit(ipRequestsPerSecond),
		writeRate:     rate.Limit(writeRequestsPerSecond),
		ipBurst:       ipBurst,
		writeBurst:    writeBurst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup periodically resets the limiter maps to bound memory
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.ipMutex.Lock()
		rl.ipLimiters = make(map[string]*rate.Limiter)
		rl.ipMutex.Unlock()

		rl.writeMutex.Lock()
		rl.writeLimiters = make(map[string]*rate.Limiter)
		rl.writeMutex.Unlock()
	}
}

// Stop stops the rate limiter cleanup
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.ipMutex.Lock()
	defer rl.ipMutex.Unlock()

	limiter, exists := rl.ipLimiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.ipLimiterRate, rl.ipBurst)
		rl.ipLimiters[ip] = limiter
	}
	return limiter
}

func (rl *RateLimiter) getWriteLimiter(key string) *rate.Limiter {
	rl.writeMutex.Lock()
	defer rl.writeMutex.Unlock()

	limiter, exists := rl.writeLimiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.writeRate, rl.writeBurst)
		rl.writeLimiters[key] = limiter
	}
	return limiter
}

// IPRateLimiterMiddleware limits requests per client IP
func (rl *RateLimiter) IPRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getIPLimiter(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// WriteRateLimiterMiddleware limits ledger mutations per client IP
func (rl *RateLimiter) WriteRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getWriteLimiter(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

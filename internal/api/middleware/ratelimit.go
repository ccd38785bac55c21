package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bhandras/studyhall/internal/metrics"
	"github.com/bhandras/studyhall/pkg/types"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key. Buckets live in a
// bounded cache and expire after ttl without traffic.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *ristretto.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	ttl      time.Duration
}

// NewRateLimiter builds a limiter allowing rps requests per second with the
// given burst, tracking at most maxPeers keys.
func NewRateLimiter(rps float64, burst int, ttl time.Duration, maxPeers int64) (*RateLimiter, error) {
	if maxPeers <= 0 {
		maxPeers = 100_000
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *rate.Limiter]{
		NumCounters: maxPeers * 10,
		MaxCost:     maxPeers,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter cache: %w", err)
	}
	return &RateLimiter{
		limiters: cache,
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
	}, nil
}

// Allow reports whether key may proceed now. Empty keys share one bucket.
func (r *RateLimiter) Allow(key string) bool {
	return r.limiter(key).Allow()
}

func (r *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := r.limiters.Get(key); ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(r.limit, r.burst)
	r.limiters.SetWithTTL(key, l, 1, r.ttl)
	r.limiters.Wait()
	return l
}

// Middleware rejects requests over the limit with 429.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			metrics.RateLimited.WithLabelValues("http").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}

// Close releases the cache.
func (r *RateLimiter) Close() {
	r.limiters.Close()
}

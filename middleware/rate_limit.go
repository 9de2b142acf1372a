package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/yatube/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter is a per-IP token bucket registry.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	buckets map[string]*rateLimiter
}

// NewRateLimiter allows perMinute requests per client IP with a burst of half of that.
func NewRateLimiter(perMinute int) *RateLimiter {
	perMinute = max(perMinute, 1)
	return &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
		buckets: map[string]*rateLimiter{},
	}
}

// Middleware limits state-changing requests; safe methods pass through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodGet || ctx.Request.Method == http.MethodHead {
			ctx.Next()
			return
		}
		if !rl.Allow(ctx.ClientIP()) {
			utils.Sugar.Infof("rate limit exceeded ip=%s path=%s", ctx.ClientIP(), ctx.Request.URL.Path)
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// Allow consumes one token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for k, b := range rl.buckets {
		if now.After(b.expires) {
			delete(rl.buckets, k)
		}
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &rateLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.expires = now.Add(5 * time.Minute)
	return b.limiter.Allow()
}

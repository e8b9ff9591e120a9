package ledgerd

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jmerrifield20/sequence-sdk-go/pkg/sequence"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token bucket. Limiters idle for ten minutes
// are dropped on the next sweep, which runs at most every five minutes.
func rateLimiter(rps float64, burst int, logger *zap.Logger) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*ipLimiter)
	lastSweep := time.Now()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > 5*time.Minute {
			for k, l := range limiters {
				if now.Sub(l.lastSeen) > 10*time.Minute {
					delete(limiters, k)
				}
			}
			lastSweep = now
		}
		l, ok := limiters[ip]
		if !ok {
			l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[ip] = l
		}
		l.lastSeen = now
		mu.Unlock()

		if !l.limiter.Allow() {
			c.Header("Retry-After", "1")
			writeError(c, logger, &Error{
				Status:    http.StatusTooManyRequests,
				Code:      sequence.CodeRateLimited,
				Message:   "Rate limit exceeded",
				Retriable: true,
			})
			return
		}
		c.Next()
	}
}

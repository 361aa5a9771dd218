package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/fleetverify-backend/internal/errors"
	"golang.org/x/time/rate"
)

const visitorIdleTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a per-client-IP token bucket for the admin API.
type Throttle struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewThrottle(requestsPerSec float64, burst int) *Throttle {
	return &Throttle{
		limit:    rate.Limit(requestsPerSec),
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

func (t *Throttle) limiterFor(ip string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Middleware rejects requests with 429 once the caller's bucket is empty.
func (t *Throttle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !t.limiterFor(ip, time.Now()).Allow() {
			GetLoggerFromContext(c).Warn("Request throttled", map[string]interface{}{
				"ip":   ip,
				"path": c.Request.URL.Path,
			})
			apperrors.TooManyRequests(c, apperrors.RateLimitExceeded, "Too many requests. Please slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Sweep drops visitors idle for longer than the TTL and returns how many remain.
func (t *Throttle) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for ip, v := range t.visitors {
		if now.Sub(v.lastSeen) > visitorIdleTTL {
			delete(t.visitors, ip)
		}
	}
	return len(t.visitors)
}

// RunCleanup sweeps every minute until ctx is done.
func (t *Throttle) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Sweep(now)
		}
	}
}

package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/internal/util"
)

const headerRequestID = "X-Request-ID"

// limiterIdle is how long an IP's bucket survives without requests.
const limiterIdle = 10 * time.Minute

// IPLimiter hands out one token bucket per client IP. Buckets idle for
// limiterIdle are swept on a later request.
type IPLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*ipBucket
	lastSweep time.Time
	now       func() time.Time
}

type ipBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter allows rps requests per second per IP with the given burst.
// A non-positive rps disables limiting.
func NewIPLimiter(rps float64, burst int) *IPLimiter {
	l := &IPLimiter{limit: rate.Inf, limiters: make(map[string]*ipBucket), now: time.Now}
	if rps > 0 {
		l.limit = rate.Limit(rps)
		l.burst = max(burst, 1)
	}
	return l
}

// Allow reports whether ip may make a request now.
func (l *IPLimiter) Allow(ip string) bool {
	if l.limit == rate.Inf {
		return true
	}
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= limiterIdle {
		for k, b := range l.limiters {
			if now.Sub(b.lastSeen) >= limiterIdle {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.limiters[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

// Len returns the number of tracked IPs.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// CORSMiddleware handles Cross-Origin Resource Sharing. An empty origin
// allows any.
func CORSMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, "+headerRequestID)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware adds a request id to the context and the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := util.WithRequestID(c.Request.Context(), strings.TrimSpace(c.GetHeader(headerRequestID)))
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(headerRequestID, util.GetRequestID(ctx))
		c.Next()
	}
}

// RateLimitMiddleware rejects clients that exceed their per-IP budget.
func RateLimitMiddleware(l *IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "too many requests, please slow down",
			})
			return
		}
		c.Next()
	}
}

// RequestLogger logs every request with its latency and status.
func RequestLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.InfoContext(c.Request.Context(), "request",
			logger.NewField("method", c.Request.Method),
			logger.NewField("path", c.Request.URL.Path),
			logger.NewField("status", c.Writer.Status()),
			logger.NewField("latency", time.Since(start)),
			logger.NewField("client_ip", c.ClientIP()))
	}
}

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/htmlrender/config"
	"github.com/use-agent/htmlrender/models"
	"golang.org/x/time/rate"
)

const evictInterval = 5 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters holds one token bucket per client IP.
type ipLimiters struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func newIPLimiters(cfg config.RateLimitConfig) *ipLimiters {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Requests
	}
	return &ipLimiters{
		limit:   rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:   burst,
		ttl:     2 * cfg.Window,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evict drops entries not seen since before now minus the TTL.
func (l *ipLimiters) evict(now time.Time) {
	cutoff := now.Add(-l.ttl)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
		}
	}
}

func (l *ipLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// evictLoop runs evict every interval until ctx is done.
func (l *ipLimiters) evictLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

// RateLimit returns per-client-IP token-bucket rate limiting middleware
// powered by golang.org/x/time/rate. The bucket refills at
// Requests/Window and holds Burst tokens (Requests when Burst is unset).
//
// Entries unused for two windows are evicted by a background goroutine
// that exits when ctx is done.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newIPLimiters(cfg)
	go limiters.evictLoop(ctx, evictInterval)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP(), time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: "too many requests, please try again later",
				Code:  models.ErrCodeRateLimited,
			})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleClientTTL is how long an idle client's limiter is kept
const idleClientTTL = 3 * time.Minute

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// Limiter builds a token bucket for one client or connection
func (cfg RateLimitConfig) Limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clients holds per-IP limiters, pruning idle ones at most once per TTL
type clients struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	byIP      map[string]*client
	lastPrune time.Time
}

func (cs *clients) get(ip string, now time.Time) *rate.Limiter {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if now.Sub(cs.lastPrune) > idleClientTTL {
		for key, c := range cs.byIP {
			if now.Sub(c.lastSeen) > idleClientTTL {
				delete(cs.byIP, key)
			}
		}
		cs.lastPrune = now
	}

	c, ok := cs.byIP[ip]
	if !ok {
		c = &client{limiter: cs.cfg.Limiter()}
		cs.byIP[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	cs := &clients{cfg: cfg, byIP: make(map[string]*client), lastPrune: time.Now()}

	return func(c *gin.Context) {
		if !cs.get(c.ClientIP(), time.Now()).Allow() {
			tooMany(c)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a rate limiting middleware with one bucket shared
// by every client.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := cfg.Limiter()

	return func(c *gin.Context) {
		if !limiter.Allow() {
			tooMany(c)
			return
		}
		c.Next()
	}
}

func tooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
	})
}

package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/mediarelay/pkg/configs"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTTL         = 30 * time.Minute
)

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// 超限时返回 429 和纯文本消息，与中继的错误响应格式一致.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))

	// 全局 limiter
	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				tooManyRequests(c)
				return
			}

			c.Next()
		}
	}

	limiters := newLimiterSet(cfg)
	go limiters.cleanup(limiterCleanupInterval, limiterIdleTTL)

	return func(c *gin.Context) {
		if !limiters.get(limitKey(c, keyMode)).Allow() {
			tooManyRequests(c)
			return
		}

		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按 key 维护 limiter，长时间未使用的条目会被清理.
type limiterSet struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
}

func newLimiterSet(cfg configs.RateLimitConfig) *limiterSet {
	return &limiterSet{
		entries: map[string]*limiterEntry{},
		limit:   rate.Limit(cfg.RPS),
		burst:   cfg.Burst,
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}

	e.lastSeen = time.Now()

	return e.limiter
}

func (s *limiterSet) cleanup(interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.evict(time.Now().Add(-idle))
	}
}

func (s *limiterSet) evict(before time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if e.lastSeen.Before(before) {
			delete(s.entries, k)
		}
	}
}

func limitKey(c *gin.Context, keyMode string) string {
	var key string

	if h, ok := strings.CutPrefix(keyMode, "header:"); ok {
		key = c.GetHeader(h)
	}

	if key == "" {
		key = clientIP(c)
	}

	if key == "" {
		key = "unknown"
	}

	return key
}

func tooManyRequests(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Retry-After", "1")
	c.String(http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	c.Abort()
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	return ip
}

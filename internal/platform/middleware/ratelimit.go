package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL evicts limiters of clients not seen for this long. Zero keeps
	// them forever.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		IdleTTL:           10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore holds one limiter per client key.
type limiterStore struct {
	mu       sync.RWMutex
	limiters map[string]*clientLimiter
	config   RateLimitConfig
	now      func() time.Time
	lastGC   time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*clientLimiter),
		config:   cfg,
		now:      time.Now,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	now := s.now()

	s.mu.RLock()
	cl, ok := s.limiters[key]
	s.mu.RUnlock()
	if ok {
		s.mu.Lock()
		cl.lastSeen = now
		s.mu.Unlock()
		return cl.limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cl, ok := s.limiters[key]; ok {
		cl.lastSeen = now
		return cl.limiter
	}
	s.evictLocked(now)
	cl = &clientLimiter{
		limiter:  rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize),
		lastSeen: now,
	}
	s.limiters[key] = cl
	return cl.limiter
}

// evictLocked drops idle limiters at most once per IdleTTL.
func (s *limiterStore) evictLocked(now time.Time) {
	ttl := s.config.IdleTTL
	if ttl <= 0 || now.Sub(s.lastGC) < ttl {
		return
	}
	for k, cl := range s.limiters {
		if now.Sub(cl.lastSeen) > ttl {
			delete(s.limiters, k)
		}
	}
	s.lastGC = now
}

func (s *limiterStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

// retryAfter returns the whole seconds until the limiter admits one request.
func retryAfter(l *rate.Limiter, now time.Time) int {
	if l.Limit() <= 0 {
		return 1
	}
	r := l.ReserveN(now, 1)
	if !r.OK() {
		return 1
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RateLimit returns a per-client rate limiting middleware. Authenticated
// requests are keyed by user id, anonymous ones by client IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if uid, ok := c.Get("user_id").(string); ok && uid != "" {
				key = "user:" + uid
			}

			limiter := store.get(key)
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if !limiter.Allow() {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter(limiter, store.now())))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}

			return next(c)
		}
	}
}

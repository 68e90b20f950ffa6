package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimit = 20 // requests per minute
	DefaultBurstSize = 5

	// idle buckets are evicted after LimiterTTL, checked every CleanupInterval
	CleanupInterval = 5 * time.Minute
	LimiterTTL      = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client key. The public auth routes key it by
// client IP and route, so reset requests do not eat into the login budget.
type RateLimiter struct {
	perMinute int
	every     rate.Limit
	burst     int

	mu      sync.Mutex
	buckets map[string]*bucket

	stopCh   chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultRateLimit, DefaultBurstSize)
}

// NewRateLimiterWithConfig starts a limiter allowing requestsPerMinute per key with the
// given burst. Call Stop to end its eviction loop.
func NewRateLimiterWithConfig(requestsPerMinute, burst int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRateLimit
	}
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		perMinute: requestsPerMinute,
		every:     rate.Limit(float64(requestsPerMinute) / 60),
		burst:     burst,
		buckets:   make(map[string]*bucket),
		stopCh:    make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Allow consumes a token for key
func (r *RateLimiter) Allow(key string) bool {
	ok, _, _ := r.take(key)
	return ok
}

// take consumes a token and reports what is left and how long until the next token
func (r *RateLimiter) take(key string) (ok bool, remaining int, wait time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.buckets[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(r.every, r.burst)}
		r.buckets[key] = b
	}
	now := time.Now()
	b.lastSeen = now

	ok = b.lim.AllowN(now, 1)
	tokens := b.lim.TokensAt(now)
	remaining = int(math.Max(0, math.Floor(tokens)))
	if tokens < 1 {
		wait = time.Duration((1 - tokens) / float64(r.every) * float64(time.Second))
	}
	return ok, remaining, wait
}

func (r *RateLimiter) evictLoop() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case now := <-ticker.C:
			r.evict(now)
		}
	}
}

func (r *RateLimiter) evict(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, b := range r.buckets {
		if now.Sub(b.lastSeen) > LimiterTTL {
			delete(r.buckets, key)
			n++
		}
	}
	if n > 0 {
		log.Debug().Int("evicted", n).Int("active", len(r.buckets)).Msg("Evicted idle rate limit buckets")
	}
	return n
}

// Stop ends the eviction loop. Calling it twice is safe.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RateLimitMiddleware limits requests per client IP and route. Rejected requests get a
// 429 problem response with Retry-After.
func RateLimitMiddleware(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			ok, remaining, wait := rl.take(ip + " " + c.Path())

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if ok {
				return next(c)
			}

			retryAfter := int(math.Ceil(wait.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))

			log.Warn().
				Str("client", ip).
				Str("path", c.Path()).
				Int("retry_after", retryAfter).
				Msg("Rate limit exceeded")

			return c.JSON(http.StatusTooManyRequests, problemDetails{
				Type:     errorTypeRateLimit,
				Title:    "Rate Limit Exceeded",
				Status:   http.StatusTooManyRequests,
				Detail:   "Too many requests. Please retry after " + strconv.Itoa(retryAfter) + " seconds.",
				Instance: c.Request().URL.Path,
			})
		}
	}
}

package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RateLimiter provides sliding-window rate limiting keyed by user ID when
// authenticated, falling back to client IP. Visit ingestion from extensions
// is bursty, so specific endpoints can carry their own limits.
type RateLimiter struct {
	requests map[string]*requestInfo
	mu       sync.RWMutex
	limit    int
	window   time.Duration

	endpointLimits map[string]endpointLimit
}

type requestInfo struct {
	count     int
	expiresAt time.Time
}

type endpointLimit struct {
	limit  int
	window time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests:       make(map[string]*requestInfo),
		limit:          limit,
		window:         window,
		endpointLimits: make(map[string]endpointLimit),
	}

	// Cleanup goroutine
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			rl.cleanup()
		}
	}()

	return rl
}

// SetEndpointLimit overrides the default limit for a method+path pair,
// e.g. "POST /api/v1/visits/batch".
func (rl *RateLimiter) SetEndpointLimit(route string, limit int, window time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.endpointLimits[route] = endpointLimit{limit: limit, window: window}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, info := range rl.requests {
		if now.After(info.expiresAt) {
			delete(rl.requests, key)
		}
	}
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if uid, ok := c.Locals("user_id").(uuid.UUID); ok {
			key = "user:" + uid.String()
		}

		limit := rl.limit
		window := rl.window
		route := c.Method() + " " + c.Path()

		rl.mu.Lock()
		if el, ok := rl.endpointLimits[route]; ok {
			limit = el.limit
			window = el.window
			key = route + "|" + key
		}

		info, exists := rl.requests[key]
		now := time.Now()

		if !exists || now.After(info.expiresAt) {
			rl.requests[key] = &requestInfo{
				count:     1,
				expiresAt: now.Add(window),
			}
			rl.mu.Unlock()
			setRateLimitHeaders(c, limit, limit-1, nil)
			return c.Next()
		}

		remaining := limit - info.count
		if info.count >= limit {
			rl.mu.Unlock()
			setRateLimitHeaders(c, limit, 0, info)
			return c.Status(429).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"code":        "RATE_LIMITED",
				"retry_after": int(info.expiresAt.Sub(now).Seconds()),
			})
		}

		info.count++
		rl.mu.Unlock()

		setRateLimitHeaders(c, limit, remaining-1, info)
		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, limit, remaining int, info *requestInfo) {
	c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	if info != nil {
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.expiresAt.Unix()))
	}
}

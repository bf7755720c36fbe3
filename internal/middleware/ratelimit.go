package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitPeriod = time.Minute
	rateLimitCount  = 5
)

// RateLimiter is a fixed-window limiter keyed on client IP, backed by
// Redis. A nil client disables limiting, and Redis failures fail open.
func RateLimiter(client *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if client == nil {
			return c.Next()
		}

		key := "rate_limit:" + c.IP()
		count, err := client.Incr(c.Context(), key).Result()
		if err != nil {
			return c.Next()
		}

		if count == 1 {
			client.Expire(c.Context(), key, rateLimitPeriod)
		}

		if count > rateLimitCount {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}

		return c.Next()
	}
}

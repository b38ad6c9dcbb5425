package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders adds security headers to all responses
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Set("Server", "")
		return c.Next()
	}
}

// ValidateContentType ensures mutating requests carry a JSON body.
// Extension clients only ever send application/json; anything else is
// a misconfigured caller.
func ValidateContentType() fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != "POST" && method != "PUT" && method != "PATCH" {
			return c.Next()
		}

		if len(c.Body()) == 0 {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType == "" {
			return c.Status(400).JSON(fiber.Map{
				"error": "content-type header required",
				"code":  "MISSING_CONTENT_TYPE",
			})
		}

		if !strings.HasPrefix(contentType, "application/json") {
			return c.Status(415).JSON(fiber.Map{
				"error": "unsupported content type",
				"code":  "UNSUPPORTED_MEDIA_TYPE",
			})
		}

		return c.Next()
	}
}

// MaxBodySize limits request body size for specific endpoints
func MaxBodySize(maxBytes int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(c.Body()) > maxBytes {
			return c.Status(413).JSON(fiber.Map{
				"error":    "request body too large",
				"code":     "PAYLOAD_TOO_LARGE",
				"max_size": maxBytes,
			})
		}
		return c.Next()
	}
}

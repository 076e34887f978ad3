package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/punchcard/backend/internal/config"
)

// APIKey gates the internal API. Identity (which member, which branch,
// which staff account) is established upstream; this layer only keeps
// unauthenticated traffic off the recording endpoints.
func APIKey(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Server.APIKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid api key",
			})
		}
		return c.Next()
	}
}

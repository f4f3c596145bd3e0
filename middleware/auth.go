package middleware

import (
	"crypto/subtle"
	"strings"

	"mailwarm/config"

	"github.com/gofiber/fiber/v2"
)

// Protected guards the operations API with the master key. Requests present
// the key in the X-API-Key header or as a Bearer token. When no key is
// configured (development) the check is skipped.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		masterKey := config.AppConfig.MasterAPIKey
		if masterKey == "" {
			return c.Next()
		}

		token := c.Get("X-API-Key")
		if token == "" {
			if after, ok := strings.CutPrefix(c.Get("Authorization"), "Bearer "); ok {
				token = after
			}
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(masterKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		return c.Next()
	}
}

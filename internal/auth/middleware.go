package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TelegramIDLocalKey is where RequireJWT stores the caller's Telegram id.
const TelegramIDLocalKey = "telegram_id"

// RequireJWT rejects requests without a valid "Authorization: Bearer" token.
func RequireJWT(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		id, err := ParseToken(token, secret)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(TelegramIDLocalKey, id)
		return c.Next()
	}
}

// TelegramID returns the id stored by RequireJWT.
func TelegramID(c *fiber.Ctx) string {
	id, _ := c.Locals(TelegramIDLocalKey).(string)
	return id
}

package middleware

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FoxKit/internal/pkg/dbwebhook"
)

// RequireSharedSecret rejects requests whose header does not carry secret.
// Used for callers that authenticate with a static signature header, like
// database webhooks.
func RequireSharedSecret(header, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !dbwebhook.VerifySignature(c.Get(header), secret) {
			fiberlog.Warnf("[Webhook] Rejected %s %s: bad %s header", c.Method(), c.Path(), header)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
		}
		return c.Next()
	}
}

package controllers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

func jsonError(c *fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

// requestHeader copies the request headers for code that expects net/http
// semantics, such as webhook signature checks.
func requestHeader(c *fiber.Ctx) http.Header {
	h := make(http.Header)
	c.Request().Header.VisitAll(func(key, value []byte) {
		h.Add(string(key), string(value))
	})
	return h
}

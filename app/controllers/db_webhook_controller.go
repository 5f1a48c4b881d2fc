package controllers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FoxKit/internal/pkg/dbwebhook"
)

type RowChangeHandler interface {
	Handle(ctx context.Context, p dbwebhook.Payload) error
}

// DBWebhookController receives row change notifications from the database.
// The signature header is checked by middleware.RequireSharedSecret.
type DBWebhookController struct {
	router RowChangeHandler
}

func NewDBWebhookController(router RowChangeHandler) *DBWebhookController {
	return &DBWebhookController{router: router}
}

func (dc *DBWebhookController) HandleWebhook(c *fiber.Ctx) error {
	var payload dbwebhook.Payload
	if err := json.Unmarshal(c.Body(), &payload); err != nil || payload.Table == "" || payload.Type == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload")
	}

	if err := dc.router.Handle(c.UserContext(), payload); err != nil {
		fiberlog.Errorf("[DBWebhook] %s on %s failed: %v", payload.Type, payload.Table, err)
		return jsonError(c, fiber.StatusInternalServerError, "webhook_processing_failed")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

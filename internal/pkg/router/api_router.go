package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/FoxKit/app/controllers"
	"github.com/ManuelReschke/FoxKit/internal/pkg/constants"
	"github.com/ManuelReschke/FoxKit/internal/pkg/dbwebhook"
	"github.com/ManuelReschke/FoxKit/internal/pkg/middleware"
)

type ApiRouter struct {
	billing         *controllers.BillingController
	dbWebhook       *controllers.DBWebhookController
	dbWebhookSecret string
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Providers retry in bursts, so the limit is generous
	api := app.Group(constants.APIPrefix, limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	api.Post(constants.BillingWebhookRoute, h.billing.HandleWebhook)
	api.Post(constants.DatabaseWebhookRoute,
		middleware.RequireSharedSecret(dbwebhook.SignatureHeader, h.dbWebhookSecret),
		h.dbWebhook.HandleWebhook)
}

func NewApiRouter(billing *controllers.BillingController, dbWebhook *controllers.DBWebhookController, dbWebhookSecret string) *ApiRouter {
	return &ApiRouter{
		billing:         billing,
		dbWebhook:       dbWebhook,
		dbWebhookSecret: dbWebhookSecret,
	}
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/FoxKit/internal/pkg/constants"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Pricing tables read the catalog without a session
	app.Get(constants.BillingPlansRoute, h.billing.HandlePlans)
}

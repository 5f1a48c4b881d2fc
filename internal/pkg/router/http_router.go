package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/FoxKit/app/controllers"
	"github.com/ManuelReschke/FoxKit/internal/pkg/middleware"
)

type HttpRouter struct {
	sessions      *session.Store
	billing       *controllers.BillingController
	secureCookies bool
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.sessions))

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(sessions *session.Store, billing *controllers.BillingController, secureCookies bool) *HttpRouter {
	return &HttpRouter{
		sessions:      sessions,
		billing:       billing,
		secureCookies: secureCookies,
	}
}

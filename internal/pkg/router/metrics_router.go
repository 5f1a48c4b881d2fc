package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/ManuelReschke/FoxKit/internal/pkg/constants"
)

// MetricsRouter exposes the prometheus handler, behind basic auth when a
// user is configured.
type MetricsRouter struct {
	handler  fiber.Handler
	user     string
	password string
}

func (m MetricsRouter) InstallRouter(app *fiber.App) {
	if m.user == "" {
		app.Get(constants.MetricsRoute, m.handler)
		return
	}
	app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
		Users: map[string]string{m.user: m.password},
		Realm: "metrics",
	}), m.handler)
}

func NewMetricsRouter(handler fiber.Handler, user, password string) *MetricsRouter {
	return &MetricsRouter{handler: handler, user: user, password: password}
}

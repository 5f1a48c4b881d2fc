package router

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/FoxKit/internal/pkg/constants"
	"github.com/ManuelReschke/FoxKit/internal/pkg/middleware"
)

const (
	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "_csrf"
)

var errCSRFTokenMissing = errors.New("csrf token missing")

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		Extractor:      extractCSRFToken,
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   h.secureCookies,
		ErrorHandler:   rejectCSRF,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), constants.APIPrefix+"/")
		},
	}

	group := app.Group("", csrf.New(csrfConf))
	group.Get(constants.BillingCSRFRoute, h.billing.HandleCSRFToken)
	group.Get(constants.BillingReturnRoute, middleware.RequireAPISessionAuth, h.billing.HandleCheckoutReturn)
	group.Post(constants.BillingCheckoutRoute, middleware.RequireAPISessionAuth, h.billing.HandleCheckout)
	group.Post(constants.BillingPortalRoute, middleware.RequireAuth, h.billing.HandlePortal)
	group.Post(constants.BillingUsageRoute, middleware.RequireAPISessionAuth, h.billing.HandleRecordUsage)
}

// extractCSRFToken finds the token in the X-CSRF-Token header, in the
// payload.csrfToken field of a JSON checkout body, or in the _csrf form field.
func extractCSRFToken(c *fiber.Ctx) (string, error) {
	if token := c.Get(csrfHeader); token != "" {
		return token, nil
	}
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var body struct {
			Payload struct {
				CSRFToken string `json:"csrfToken"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(c.Body(), &body); err == nil && body.Payload.CSRFToken != "" {
			return body.Payload.CSRFToken, nil
		}
		return "", errCSRFTokenMissing
	}
	if token := c.FormValue(csrfFormField); token != "" {
		return token, nil
	}
	return "", errCSRFTokenMissing
}

func rejectCSRF(c *fiber.Ctx, err error) error {
	fiberlog.Warnf("[CSRF] Rejected %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid_csrf_token"})
}

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FoxKit/internal/pkg/accountbilling"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/ManuelReschke/FoxKit/internal/pkg/constants"
	"github.com/ManuelReschke/FoxKit/internal/pkg/usercontext"
)

const (
	IntentAccountCheckout  = "account-checkout"
	IntentPersonalCheckout = "personal-checkout"
	IntentAccountPortal    = "account-portal"
	IntentPersonalPortal   = "personal-portal"
)

const billingRequestTimeout = 20 * time.Second

type PersonalBilling interface {
	CreateCheckout(ctx context.Context, user *accountbilling.User, params accountbilling.PersonalCheckoutParams) (*billing.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, user *accountbilling.User) (*billing.PortalSession, error)
}

type TeamBilling interface {
	CreateCheckout(ctx context.Context, user *accountbilling.User, params accountbilling.TeamCheckoutParams) (*billing.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, user *accountbilling.User, params accountbilling.TeamPortalParams) (*billing.PortalSession, error)
}

type CheckoutReturns interface {
	CheckoutReturn(ctx context.Context, sessionID string) (*billing.CheckoutSessionStatus, error)
}

type UsageRecorder interface {
	Record(ctx context.Context, user *accountbilling.User, params accountbilling.RecordUsageParams) error
}

type WebhookProcessor interface {
	Handle(ctx context.Context, req billing.WebhookRequest) (*billing.WebhookOutcome, error)
}

// BillingController serves the checkout, portal and provider webhook endpoints.
type BillingController struct {
	personal PersonalBilling
	team     TeamBilling
	returns  CheckoutReturns
	usage    UsageRecorder
	webhooks WebhookProcessor
	catalog  *catalog.Config
	validate *validator.Validate
}

func NewBillingController(personal PersonalBilling, team TeamBilling, returns CheckoutReturns, usage UsageRecorder, webhooks WebhookProcessor, cat *catalog.Config) *BillingController {
	return &BillingController{
		personal: personal,
		team:     team,
		returns:  returns,
		usage:    usage,
		webhooks: webhooks,
		catalog:  cat,
		validate: validator.New(),
	}
}

// checkoutRequest is the JSON envelope posted by the pricing table.
type checkoutRequest struct {
	Intent  string          `json:"intent" validate:"required,oneof=account-checkout personal-checkout"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type checkoutPayload struct {
	CSRFToken string `json:"csrfToken" validate:"required"`
	PlanID    string `json:"planId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	AccountID string `json:"accountId"`
	Slug      string `json:"slug"`
}

// HandleCheckout creates an embedded checkout and returns its token. The CSRF
// token inside the payload is checked by middleware before this runs.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request")
	}
	if err := bc.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request")
	}
	var payload checkoutPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request")
	}
	if err := bc.validate.Struct(payload); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request")
	}

	user := currentUser(c)
	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	var session *billing.CheckoutSession
	var err error
	switch req.Intent {
	case IntentAccountCheckout:
		params := accountbilling.TeamCheckoutParams{
			AccountID: payload.AccountID,
			Slug:      payload.Slug,
			PlanID:    payload.PlanID,
			ProductID: payload.ProductID,
		}
		if err := bc.validate.Struct(params); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid_request")
		}
		session, err = bc.team.CreateCheckout(ctx, user, params)
	default:
		session, err = bc.personal.CreateCheckout(ctx, user, accountbilling.PersonalCheckoutParams{
			PlanID:    payload.PlanID,
			ProductID: payload.ProductID,
		})
	}
	if err != nil {
		return billingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"checkoutToken": session.CheckoutToken})
}

// HandlePortal redirects to the provider billing portal, or back to the
// billing page with a flash error.
func (bc *BillingController) HandlePortal(c *fiber.Ctx) error {
	intent := c.FormValue("intent", IntentPersonalPortal)
	params := accountbilling.TeamPortalParams{
		AccountID: c.FormValue("accountId"),
		Slug:      c.FormValue("slug"),
	}
	back := constants.PersonalBillingPage
	if intent == IntentAccountPortal && params.Slug != "" {
		back = "/home/" + url.PathEscape(params.Slug) + "/billing"
	}

	user := currentUser(c)
	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	var session *billing.PortalSession
	var err error
	switch intent {
	case IntentAccountPortal:
		if verr := bc.validate.Struct(params); verr != nil {
			err = errors.Join(billing.ErrValidation, verr)
			break
		}
		session, err = bc.team.CreatePortalSession(ctx, user, params)
	case IntentPersonalPortal:
		session, err = bc.personal.CreatePortalSession(ctx, user)
	default:
		err = billing.ErrValidation
	}
	if err != nil {
		status, code := errorStatus(err)
		fiberlog.Warnf("[Billing] Portal request failed (%d %s): %v", status, code, err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": portalMessage(code)}).Redirect(back)
	}
	return c.Redirect(session.URL, fiber.StatusSeeOther)
}

// HandleCheckoutReturn reports the state of a checkout session.
func (bc *BillingController) HandleCheckoutReturn(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request")
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), billingRequestTimeout)
	defer cancel()

	status, err := bc.returns.CheckoutReturn(ctx, sessionID)
	if err != nil {
		return billingError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

// HandlePlans returns the visible catalog for pricing pages.
func (bc *BillingController) HandlePlans(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"provider":  bc.catalog.Provider,
		"intervals": bc.catalog.PlanIntervals(),
		"products":  bc.catalog.VisibleProducts(),
	})
}

// HandleCSRFToken hands the current CSRF token to script clients.
func (bc *BillingController) HandleCSRFToken(c *fiber.Ctx) error {
	token, _ := c.Locals("csrf").(string)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"csrfToken": token})
}

// HandleRecordUsage buffers metered usage for an account.
func (bc *BillingController) HandleRecordUsage(c *fiber.Ctx) error {
	var params accountbilling.RecordUsageParams
	if err := c.BodyParser(&params); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request")
	}
	if err := bc.validate.Struct(params); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request")
	}
	if err := bc.usage.Record(c.UserContext(), currentUser(c), params); err != nil {
		return billingError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
}

// HandleWebhook processes one provider delivery. Any failure after the
// signature check returns 500 so the provider redelivers.
func (bc *BillingController) HandleWebhook(c *fiber.Ctx) error {
	req := billing.WebhookRequest{
		Body:   append([]byte(nil), c.BodyRaw()...),
		Header: requestHeader(c),
	}
	outcome, err := bc.webhooks.Handle(c.UserContext(), req)
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		return jsonError(c, fiber.StatusUnauthorized, "invalid_signature")
	case errors.Is(err, billing.ErrProviderNotSupported):
		return jsonError(c, fiber.StatusBadRequest, "provider_not_supported")
	case err != nil:
		return jsonError(c, fiber.StatusInternalServerError, "webhook_processing_failed")
	}
	if outcome.Duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

func currentUser(c *fiber.Ctx) *accountbilling.User {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return nil
	}
	return &accountbilling.User{ID: uc.UserID, Email: uc.Email}
}

// errorStatus maps service errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, billing.ErrValidation):
		return fiber.StatusBadRequest, "invalid_request"
	case errors.Is(err, billing.ErrAuthRequired):
		return fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, billing.ErrPermissionDenied):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, billing.ErrCustomerNotFound):
		return fiber.StatusNotFound, "customer_not_found"
	case errors.Is(err, billing.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, accountbilling.ErrCheckoutNotCreated):
		return fiber.StatusInternalServerError, "checkout_not_created"
	case errors.Is(err, accountbilling.ErrPortalNotCreated):
		return fiber.StatusInternalServerError, "portal_not_created"
	case errors.Is(err, billing.ErrProviderNotSupported):
		return fiber.StatusInternalServerError, "provider_not_supported"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func billingError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		fiberlog.Errorf("[Billing] %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return jsonError(c, status, code)
}

func portalMessage(code string) string {
	switch code {
	case "customer_not_found":
		return "No billing account found. Start a subscription first."
	case "forbidden":
		return "You are not allowed to manage billing for this account."
	case "unauthorized":
		return "Please sign in again."
	default:
		return "Failed to create billing portal session"
	}
}

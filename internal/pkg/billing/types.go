package billing

import (
	"net/http"
	"time"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
)

// Provider is re-exported so callers of this package rarely need catalog.
type Provider = catalog.Provider

// VariantQuantity sets the quantity of one line item at checkout.
type VariantQuantity struct {
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"min=1"`
}

type CheckoutSessionParams struct {
	ReturnURL           string            `json:"returnUrl" validate:"required,url"`
	AccountID           string            `json:"accountId" validate:"required,uuid"`
	Plan                catalog.Plan      `json:"plan"`
	CustomerID          string            `json:"customerId,omitempty"`
	CustomerEmail       string            `json:"customerEmail,omitempty" validate:"omitempty,email"`
	EnableDiscountField bool              `json:"enableDiscountField,omitempty"`
	VariantQuantities   []VariantQuantity `json:"variantQuantities" validate:"dive"`
}

// QuantityFor returns the requested quantity for a variant, def if none.
func (p CheckoutSessionParams) QuantityFor(variantID string, def int64) int64 {
	for _, vq := range p.VariantQuantities {
		if vq.VariantID == variantID {
			return vq.Quantity
		}
	}
	return def
}

type CheckoutSession struct {
	CheckoutToken string `json:"checkoutToken"`
}

type RetrieveCheckoutSessionParams struct {
	SessionID string `json:"sessionId" validate:"required"`
}

const (
	CheckoutStatusOpen     = "open"
	CheckoutStatusComplete = "complete"
	CheckoutStatusExpired  = "expired"
)

type CheckoutSessionStatus struct {
	// CheckoutToken is only set while the session is still open.
	CheckoutToken *string `json:"checkoutToken"`
	Status        string  `json:"status"`
	IsSessionOpen bool    `json:"isSessionOpen"`
	CustomerEmail string  `json:"customerEmail,omitempty"`
}

type PortalSessionParams struct {
	ReturnURL  string `json:"returnUrl" validate:"required,url"`
	CustomerID string `json:"customerId" validate:"required"`
}

type PortalSession struct {
	URL string `json:"url"`
}

type CancelSubscriptionParams struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
	InvoiceNow     bool   `json:"invoiceNow,omitempty"`
}

type UsageAction string

const (
	UsageIncrement UsageAction = "increment"
	UsageSet       UsageAction = "set"
)

// ReportUsageParams records metered usage. ID is the Stripe customer or the
// Lemon Squeezy subscription item the usage belongs to.
type ReportUsageParams struct {
	ID        string      `json:"id" validate:"required"`
	EventName string      `json:"eventName,omitempty"`
	Quantity  int64       `json:"quantity" validate:"min=0"`
	Action    UsageAction `json:"action,omitempty" validate:"omitempty,oneof=increment set"`
}

// UsageFilter selects either a time range or a page of usage records.
type UsageFilter struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Page      int       `json:"page,omitempty" validate:"min=0"`
	Size      int       `json:"size,omitempty" validate:"min=0"`
}

// IsRange reports whether the filter is a time range.
func (f UsageFilter) IsRange() bool {
	return !f.StartTime.IsZero() && !f.EndTime.IsZero()
}

type QueryUsageParams struct {
	ID         string      `json:"id" validate:"required"`
	CustomerID string      `json:"customerId" validate:"required"`
	Filter     UsageFilter `json:"filter"`
}

type UsageValue struct {
	Value float64 `json:"value"`
}

type UpdateSubscriptionItemParams struct {
	SubscriptionID     string `json:"subscriptionId" validate:"required"`
	SubscriptionItemID string `json:"subscriptionItemId" validate:"required"`
	Quantity           int64  `json:"quantity" validate:"min=1"`
}

type Result struct {
	Success bool `json:"success"`
}

type PlanDetails struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Amount   int64  `json:"amount"`
}

// WebhookRequest is the raw inbound provider webhook.
type WebhookRequest struct {
	Body   []byte
	Header http.Header
}

// VendorEvent is a signature-verified provider event before normalization.
type VendorEvent struct {
	Provider catalog.Provider
	ID       string
	Type     string
	Payload  []byte
	// Raw holds the adapter's decoded representation.
	Raw any
}

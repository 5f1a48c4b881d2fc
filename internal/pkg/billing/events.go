package billing

import (
	"time"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
)

// EventKind is one of the canonical webhook outcomes every provider maps to.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout.completed"
	EventSubscriptionUpdated EventKind = "subscription.updated"
	EventSubscriptionDeleted EventKind = "subscription.deleted"
	EventPaymentSucceeded    EventKind = "payment.succeeded"
	EventPaymentFailed       EventKind = "payment.failed"
	EventInvoicePaid         EventKind = "invoice.paid"
	// EventOther carries vendor events without a canonical mapping.
	EventOther EventKind = "other"
)

// EventKinds lists every canonical kind.
func EventKinds() []EventKind {
	return []EventKind{
		EventCheckoutCompleted,
		EventSubscriptionUpdated,
		EventSubscriptionDeleted,
		EventPaymentSucceeded,
		EventPaymentFailed,
		EventInvoicePaid,
		EventOther,
	}
}

// SubscriptionLineItem is one provider subscription item.
type SubscriptionLineItem struct {
	ID             string               `json:"id"`
	SubscriptionID string               `json:"subscriptionId"`
	ProductID      string               `json:"productId"`
	VariantID      string               `json:"variantId"`
	Quantity       int64                `json:"quantity"`
	PriceAmount    int64                `json:"priceAmount"`
	Interval       string               `json:"interval"`
	IntervalCount  int64                `json:"intervalCount"`
	Type           catalog.LineItemType `json:"type"`
}

// SubscriptionParams is the provider-neutral subscription state that gets
// upserted locally.
type SubscriptionParams struct {
	AccountID         string                 `json:"accountId,omitempty"`
	CustomerID        string                 `json:"customerId"`
	SubscriptionID    string                 `json:"subscriptionId"`
	Provider          catalog.Provider       `json:"provider"`
	Status            string                 `json:"status"`
	Active            bool                   `json:"active"`
	CancelAtPeriodEnd bool                   `json:"cancelAtPeriodEnd"`
	Currency          string                 `json:"currency"`
	PeriodStartsAt    time.Time              `json:"periodStartsAt"`
	PeriodEndsAt      time.Time              `json:"periodEndsAt"`
	TrialStartsAt     *time.Time             `json:"trialStartsAt,omitempty"`
	TrialEndsAt       *time.Time             `json:"trialEndsAt,omitempty"`
	LineItems         []SubscriptionLineItem `json:"lineItems"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderSucceeded OrderStatus = "succeeded"
	OrderFailed    OrderStatus = "failed"
)

type OrderLineItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId"`
	Quantity    int64  `json:"quantity"`
	PriceAmount int64  `json:"priceAmount"`
}

// OrderParams is the provider-neutral one-time purchase.
type OrderParams struct {
	AccountID   string           `json:"accountId"`
	CustomerID  string           `json:"customerId"`
	OrderID     string           `json:"orderId"`
	Provider    catalog.Provider `json:"provider"`
	Status      OrderStatus      `json:"status"`
	TotalAmount int64            `json:"totalAmount"`
	Currency    string           `json:"currency"`
	LineItems   []OrderLineItem  `json:"lineItems"`
}

// Event is a normalized webhook event. Which fields are set depends on Kind:
//
//	checkout.completed   Subscription or Order, CustomerID
//	subscription.updated Subscription
//	invoice.paid         Subscription
//	subscription.deleted SubscriptionID
//	payment.succeeded    SessionID
//	payment.failed       SessionID
//	other                Vendor only
type Event struct {
	Kind           EventKind
	Provider       catalog.Provider
	Subscription   *SubscriptionParams
	Order          *OrderParams
	CustomerID     string
	SubscriptionID string
	SessionID      string
	Vendor         *VendorEvent
}

package stripeprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const signatureHeader = "Stripe-Signature"

const (
	eventCheckoutCompleted     = "checkout.session.completed"
	eventSubscriptionUpdated   = "customer.subscription.updated"
	eventSubscriptionDeleted   = "customer.subscription.deleted"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	eventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	eventInvoicePaid           = "invoice.paid"
)

// VerifyWebhookSignature checks the Stripe-Signature header against the
// endpoint secret and decodes the event.
func (s *Strategy) VerifyWebhookSignature(_ context.Context, req billing.WebhookRequest) (*billing.VendorEvent, error) {
	if s.webhookSecret == "" {
		return nil, errors.New("stripe: STRIPE_WEBHOOK_SECRET is not set")
	}
	header := req.Header.Get(signatureHeader)
	if header == "" {
		return nil, fmt.Errorf("%w: missing %s header", billing.ErrInvalidSignature, signatureHeader)
	}

	event, err := webhook.ConstructEventWithOptions(req.Body, header, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidSignature, err)
	}

	return &billing.VendorEvent{
		Provider: catalog.ProviderStripe,
		ID:       event.ID,
		Type:     string(event.Type),
		Payload:  req.Body,
		Raw:      &event,
	}, nil
}

func (s *Strategy) NormalizeEvent(ctx context.Context, vendor *billing.VendorEvent) (*billing.Event, error) {
	event, err := decodeEvent(vendor)
	if err != nil {
		return nil, err
	}

	switch vendor.Type {
	case eventCheckoutCompleted:
		return s.checkoutCompleted(ctx, event)
	case eventSubscriptionUpdated:
		return s.subscriptionUpdated(event)
	case eventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("stripe: decode subscription: %w", err)
		}
		return &billing.Event{Kind: billing.EventSubscriptionDeleted, SubscriptionID: sub.ID}, nil
	case eventAsyncPaymentSucceeded, eventAsyncPaymentFailed:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		kind := billing.EventPaymentSucceeded
		if vendor.Type == eventAsyncPaymentFailed {
			kind = billing.EventPaymentFailed
		}
		return &billing.Event{Kind: kind, SessionID: session.ID}, nil
	case eventInvoicePaid:
		return s.invoicePaid(ctx, event)
	default:
		fiberlog.Debugf("[Stripe] Unhandled webhook event %s (%s)", vendor.Type, vendor.ID)
		return &billing.Event{Kind: billing.EventOther}, nil
	}
}

func decodeEvent(vendor *billing.VendorEvent) (*stripe.Event, error) {
	if event, ok := vendor.Raw.(*stripe.Event); ok && event != nil {
		return event, nil
	}
	var event stripe.Event
	if err := json.Unmarshal(vendor.Payload, &event); err != nil {
		return nil, fmt.Errorf("stripe: decode event: %w", err)
	}
	return &event, nil
}

func (s *Strategy) checkoutCompleted(ctx context.Context, event *stripe.Event) (*billing.Event, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}

	accountID := session.ClientReferenceID
	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	if session.Mode == stripe.CheckoutSessionModeSubscription {
		if session.Subscription == nil || session.Subscription.ID == "" {
			return nil, errors.New("stripe: subscription checkout without subscription")
		}
		sp := &stripe.SubscriptionParams{}
		sp.Context = ctx
		sub, err := s.api.GetSubscription(session.Subscription.ID, sp)
		if err != nil {
			return nil, s.fail("getSubscription", err)
		}
		params, err := s.subscriptionParams(sub, accountID)
		if err != nil {
			return nil, err
		}
		if params.CustomerID == "" {
			params.CustomerID = customerID
		}
		return &billing.Event{Kind: billing.EventCheckoutCompleted, Subscription: params, CustomerID: params.CustomerID}, nil
	}

	lp := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(session.ID)}
	lp.Context = ctx
	items, err := s.api.ListCheckoutLineItems(lp)
	if err != nil {
		return nil, s.fail("listLineItems", err)
	}

	status := billing.OrderPending
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = billing.OrderSucceeded
	}
	order := &billing.OrderParams{
		AccountID:   accountID,
		CustomerID:  customerID,
		OrderID:     session.ID,
		Provider:    catalog.ProviderStripe,
		Status:      status,
		TotalAmount: session.AmountTotal,
		Currency:    string(session.Currency),
	}
	for _, item := range items {
		li := billing.OrderLineItem{
			ID:          item.ID,
			Quantity:    item.Quantity,
			PriceAmount: item.AmountTotal,
		}
		if item.Price != nil {
			li.VariantID = item.Price.ID
			if item.Price.Product != nil {
				li.ProductID = item.Price.Product.ID
			}
		}
		order.LineItems = append(order.LineItems, li)
	}
	return &billing.Event{Kind: billing.EventCheckoutCompleted, Order: order, CustomerID: customerID}, nil
}

func (s *Strategy) subscriptionUpdated(event *stripe.Event) (*billing.Event, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("stripe: decode subscription: %w", err)
	}
	params, err := s.subscriptionParams(&sub, "")
	if err != nil {
		return nil, err
	}
	return &billing.Event{Kind: billing.EventSubscriptionUpdated, Subscription: params}, nil
}

// invoiceRef decodes only the subscription reference of an invoice. Newer API
// versions nest it under parent.subscription_details.
type invoiceRef struct {
	ID           string          `json:"id"`
	Subscription json.RawMessage `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription json.RawMessage `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (r invoiceRef) subscriptionID() string {
	if id := expandableID(r.Subscription); id != "" {
		return id
	}
	if r.Parent != nil && r.Parent.SubscriptionDetails != nil {
		return expandableID(r.Parent.SubscriptionDetails.Subscription)
	}
	return ""
}

// expandableID reads a Stripe field that is either an id or an expanded object.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

func (s *Strategy) invoicePaid(ctx context.Context, event *stripe.Event) (*billing.Event, error) {
	var invoice invoiceRef
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return nil, fmt.Errorf("stripe: decode invoice: %w", err)
	}
	subscriptionID := invoice.subscriptionID()
	if subscriptionID == "" {
		fiberlog.Debugf("[Stripe] Invoice %s has no subscription, ignoring", invoice.ID)
		return &billing.Event{Kind: billing.EventOther}, nil
	}

	sp := &stripe.SubscriptionParams{}
	sp.Context = ctx
	sub, err := s.api.GetSubscription(subscriptionID, sp)
	if err != nil {
		return nil, s.fail("getSubscription", err)
	}
	params, err := s.subscriptionParams(sub, "")
	if err != nil {
		return nil, err
	}
	return &billing.Event{Kind: billing.EventInvoicePaid, Subscription: params}, nil
}

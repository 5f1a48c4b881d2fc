package lemonsqueezy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const signatureHeader = "X-Signature"

const (
	eventOrderCreated               = "order_created"
	eventSubscriptionCreated        = "subscription_created"
	eventSubscriptionUpdated        = "subscription_updated"
	eventSubscriptionExpired        = "subscription_expired"
	eventSubscriptionPaymentSuccess = "subscription_payment_success"
)

// webhookPayload is the envelope of every Lemon Squeezy webhook.
type webhookPayload struct {
	Meta struct {
		EventName  string            `json:"event_name"`
		CustomData map[string]string `json:"custom_data"`
	} `json:"meta"`
	Data resource `json:"data"`
}

func (p *webhookPayload) accountID() string {
	return p.Meta.CustomData["account_id"]
}

// VerifyWebhookSignature checks the X-Signature HMAC. Deliveries carry no
// event id; the webhook log falls back to a payload hash.
func (s *Strategy) VerifyWebhookSignature(_ context.Context, req billing.WebhookRequest) (*billing.VendorEvent, error) {
	if s.signingSecret == "" {
		return nil, errors.New("lemon squeezy: LEMON_SQUEEZY_SIGNING_SECRET is not set")
	}
	if !billing.VerifyHMACSHA256Hex(req.Body, req.Header.Get(signatureHeader), s.signingSecret) {
		return nil, fmt.Errorf("%w: %s mismatch", billing.ErrInvalidSignature, signatureHeader)
	}

	var payload webhookPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return nil, fmt.Errorf("lemon squeezy: decode webhook: %w", err)
	}
	return &billing.VendorEvent{
		Provider: catalog.ProviderLemonSqueezy,
		Type:     payload.Meta.EventName,
		Payload:  req.Body,
		Raw:      &payload,
	}, nil
}

func (s *Strategy) NormalizeEvent(ctx context.Context, vendor *billing.VendorEvent) (*billing.Event, error) {
	payload, ok := vendor.Raw.(*webhookPayload)
	if !ok || payload == nil {
		payload = &webhookPayload{}
		if err := json.Unmarshal(vendor.Payload, payload); err != nil {
			return nil, fmt.Errorf("lemon squeezy: decode webhook: %w", err)
		}
	}

	switch vendor.Type {
	case eventOrderCreated:
		return s.orderCreated(payload)
	case eventSubscriptionCreated, eventSubscriptionUpdated:
		var attrs subscriptionAttributes
		if err := json.Unmarshal(payload.Data.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("lemon squeezy: decode subscription: %w", err)
		}
		sub, err := s.subscriptionParams(payload.Data.ID, attrs, payload.accountID())
		if err != nil {
			return nil, err
		}
		if vendor.Type == eventSubscriptionCreated {
			return &billing.Event{Kind: billing.EventCheckoutCompleted, Subscription: sub, CustomerID: sub.CustomerID}, nil
		}
		return &billing.Event{Kind: billing.EventSubscriptionUpdated, Subscription: sub}, nil
	case eventSubscriptionExpired:
		return &billing.Event{Kind: billing.EventSubscriptionDeleted, SubscriptionID: payload.Data.ID}, nil
	case eventSubscriptionPaymentSuccess:
		var attrs subscriptionInvoiceAttributes
		if err := json.Unmarshal(payload.Data.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("lemon squeezy: decode subscription invoice: %w", err)
		}
		var subAttrs subscriptionAttributes
		id, err := s.client.get(ctx, "/subscriptions/"+url.PathEscape(idString(attrs.SubscriptionID)), &subAttrs)
		if err != nil {
			return nil, s.fail("getSubscription", err)
		}
		sub, err := s.subscriptionParams(id, subAttrs, payload.accountID())
		if err != nil {
			return nil, err
		}
		return &billing.Event{Kind: billing.EventInvoicePaid, Subscription: sub}, nil
	default:
		fiberlog.Debugf("[LemonSqueezy] Unhandled webhook event %s", vendor.Type)
		return &billing.Event{Kind: billing.EventOther}, nil
	}
}

// orderCreated only maps orders of one-time plans. Subscription orders are
// covered by subscription_created.
func (s *Strategy) orderCreated(payload *webhookPayload) (*billing.Event, error) {
	var attrs orderAttributes
	if err := json.Unmarshal(payload.Data.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("lemon squeezy: decode order: %w", err)
	}
	if attrs.FirstOrderItem == nil {
		return nil, errors.New("lemon squeezy: order without items")
	}

	variantID := idString(attrs.FirstOrderItem.VariantID)
	_, plan, err := s.catalog.ProductPlanPairByVariantID(variantID)
	if err != nil {
		return nil, err
	}
	if plan.PaymentType != catalog.PaymentTypeOneTime {
		return &billing.Event{Kind: billing.EventOther}, nil
	}

	quantity := attrs.FirstOrderItem.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	customerID := idString(attrs.CustomerID)
	order := &billing.OrderParams{
		AccountID:   payload.accountID(),
		CustomerID:  customerID,
		OrderID:     payload.Data.ID,
		Provider:    catalog.ProviderLemonSqueezy,
		Status:      orderStatus(attrs.Status),
		TotalAmount: attrs.Total,
		Currency:    attrs.Currency,
		LineItems: []billing.OrderLineItem{{
			ID:          idString(attrs.FirstOrderItem.ID),
			ProductID:   idString(attrs.FirstOrderItem.ProductID),
			VariantID:   variantID,
			Quantity:    quantity,
			PriceAmount: attrs.FirstOrderItem.Price,
		}},
	}
	return &billing.Event{Kind: billing.EventCheckoutCompleted, Order: order, CustomerID: customerID}, nil
}

func orderStatus(status string) billing.OrderStatus {
	switch status {
	case "paid":
		return billing.OrderSucceeded
	case "failed":
		return billing.OrderFailed
	default:
		return billing.OrderPending
	}
}

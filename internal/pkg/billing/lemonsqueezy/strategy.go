// Package lemonsqueezy implements the billing strategy and webhook handler
// for Lemon Squeezy on top of its JSON:API REST interface.
package lemonsqueezy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

type Config struct {
	APIKey        string
	StoreID       string
	SigningSecret string
	BaseURL       string
}

type Strategy struct {
	client        *Client
	storeID       string
	signingSecret string
	catalog       *catalog.Config
}

func New(cfg Config, cat *catalog.Config) (*Strategy, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("lemon squeezy: LEMON_SQUEEZY_SECRET_KEY is not set")
	}
	if strings.TrimSpace(cfg.StoreID) == "" {
		return nil, errors.New("lemon squeezy: LEMON_SQUEEZY_STORE_ID is not set")
	}
	return &Strategy{
		client:        NewClient(cfg.APIKey, cfg.BaseURL),
		storeID:       strings.TrimSpace(cfg.StoreID),
		signingSecret: cfg.SigningSecret,
		catalog:       cat,
	}, nil
}

var errNoCurrentUsage = errors.New("current usage response has no meta")

func (s *Strategy) fail(op string, err error) error {
	fiberlog.Errorf("[LemonSqueezy] %s failed: %v", op, err)
	return billing.NewProviderError(catalog.ProviderLemonSqueezy, op, err)
}

type variantQuantity struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int64 `json:"quantity"`
}

func (s *Strategy) CreateCheckoutSession(ctx context.Context, params billing.CheckoutSessionParams) (*billing.CheckoutSession, error) {
	if len(params.Plan.LineItems) == 0 {
		return nil, &billing.ValidationError{Op: "createCheckoutSession", Violations: []catalog.Violation{
			{Path: []string{"plan", "lineItems"}, Message: "must contain the plan variant"},
		}}
	}
	variantID := params.Plan.LineItems[0].ID

	quantities := make([]variantQuantity, 0, len(params.VariantQuantities))
	for _, vq := range params.VariantQuantities {
		id, err := strconv.ParseInt(vq.VariantID, 10, 64)
		if err != nil {
			return nil, &billing.ValidationError{Op: "createCheckoutSession", Violations: []catalog.Violation{
				{Path: []string{"variantQuantities", "variantId"}, Message: "must be a numeric variant id"},
			}}
		}
		quantities = append(quantities, variantQuantity{VariantID: id, Quantity: vq.Quantity})
	}

	checkoutData := map[string]any{
		"custom": map[string]string{"account_id": params.AccountID},
	}
	if params.CustomerEmail != "" {
		checkoutData["email"] = params.CustomerEmail
	}
	if len(quantities) > 0 {
		checkoutData["variant_quantities"] = quantities
	}

	body := map[string]any{
		"data": resource{
			Type: "checkouts",
			Attributes: marshalAttributes(map[string]any{
				"checkout_data": checkoutData,
				"checkout_options": map[string]bool{
					"embed":    true,
					"media":    true,
					"logo":     true,
					"discount": params.EnableDiscountField,
				},
				"product_options": map[string]string{
					"redirect_url": params.ReturnURL,
				},
			}),
			Relationships: map[string]relationship{
				"store":   {Data: resourceID{Type: "stores", ID: s.storeID}},
				"variant": {Data: resourceID{Type: "variants", ID: variantID}},
			},
		},
	}

	var doc document
	if err := s.client.do(ctx, http.MethodPost, "/checkouts", nil, body, &doc); err != nil {
		return nil, s.fail("createCheckoutSession", err)
	}
	var attrs checkoutAttributes
	if _, err := decodeResource(doc.Data, &attrs); err != nil {
		return nil, s.fail("createCheckoutSession", err)
	}
	return &billing.CheckoutSession{CheckoutToken: attrs.URL}, nil
}

// RetrieveCheckoutSession reads a checkout back. Lemon Squeezy does not
// expose a completion state, so an existing checkout counts as complete
// unless it expired.
func (s *Strategy) RetrieveCheckoutSession(ctx context.Context, params billing.RetrieveCheckoutSessionParams) (*billing.CheckoutSessionStatus, error) {
	var attrs checkoutAttributes
	if _, err := s.client.get(ctx, "/checkouts/"+url.PathEscape(params.SessionID), &attrs); err != nil {
		return nil, s.fail("retrieveCheckoutSession", err)
	}
	status := billing.CheckoutStatusComplete
	if attrs.ExpiresAt != nil && attrs.ExpiresAt.Before(time.Now()) {
		status = billing.CheckoutStatusExpired
	}
	return &billing.CheckoutSessionStatus{
		Status:        status,
		CustomerEmail: attrs.CheckoutData.Email,
	}, nil
}

func (s *Strategy) CreateBillingPortalSession(ctx context.Context, params billing.PortalSessionParams) (*billing.PortalSession, error) {
	var attrs customerAttributes
	if _, err := s.client.get(ctx, "/customers/"+url.PathEscape(params.CustomerID), &attrs); err != nil {
		return nil, s.fail("createBillingPortalSession", err)
	}
	if attrs.URLs.CustomerPortal == "" {
		return nil, s.fail("createBillingPortalSession", errors.New("customer has no portal url"))
	}
	return &billing.PortalSession{URL: attrs.URLs.CustomerPortal}, nil
}

func (s *Strategy) CancelSubscription(ctx context.Context, params billing.CancelSubscriptionParams) (*billing.Result, error) {
	if err := s.client.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(params.SubscriptionID), nil, nil, nil); err != nil {
		return nil, s.fail("cancelSubscription", err)
	}
	return &billing.Result{Success: true}, nil
}

// ReportUsage creates a usage record. params.ID is the subscription item.
func (s *Strategy) ReportUsage(ctx context.Context, params billing.ReportUsageParams) (*billing.Result, error) {
	action := params.Action
	if action == "" {
		action = billing.UsageIncrement
	}
	body := map[string]any{
		"data": resource{
			Type: "usage-records",
			Attributes: marshalAttributes(map[string]any{
				"quantity": params.Quantity,
				"action":   action,
			}),
			Relationships: map[string]relationship{
				"subscription-item": {Data: resourceID{Type: "subscription-items", ID: params.ID}},
			},
		},
	}
	if err := s.client.do(ctx, http.MethodPost, "/usage-records", nil, body, nil); err != nil {
		return nil, s.fail("reportUsage", err)
	}
	return &billing.Result{Success: true}, nil
}

const usagePageSize = 100

// QueryUsage sums usage records of the subscription item params.ID. A page
// filter sums one page, a time range sums every record inside it and no
// filter returns the current billing period usage.
func (s *Strategy) QueryUsage(ctx context.Context, params billing.QueryUsageParams) (*billing.UsageValue, error) {
	switch {
	case params.Filter.IsRange():
		total, err := s.sumUsageInRange(ctx, params.ID, params.Filter.StartTime, params.Filter.EndTime)
		if err != nil {
			return nil, s.fail("queryUsage", err)
		}
		return &billing.UsageValue{Value: float64(total)}, nil
	case params.Filter.Page > 0 || params.Filter.Size > 0:
		records, _, err := s.listUsage(ctx, params.ID, max(params.Filter.Page, 1), params.Filter.Size)
		if err != nil {
			return nil, s.fail("queryUsage", err)
		}
		var total int64
		for _, r := range records {
			total += r.Quantity
		}
		return &billing.UsageValue{Value: float64(total)}, nil
	default:
		var doc document
		if err := s.client.do(ctx, http.MethodGet, "/subscription-items/"+url.PathEscape(params.ID)+"/current-usage", nil, nil, &doc); err != nil {
			return nil, s.fail("queryUsage", err)
		}
		if len(doc.Meta) == 0 {
			return nil, s.fail("queryUsage", errNoCurrentUsage)
		}
		var meta currentUsageMeta
		if err := json.Unmarshal(doc.Meta, &meta); err != nil {
			return nil, s.fail("queryUsage", err)
		}
		return &billing.UsageValue{Value: float64(meta.Quantity)}, nil
	}
}

func (s *Strategy) listUsage(ctx context.Context, itemID string, page, size int) ([]usageRecordAttributes, pageMeta, error) {
	q := url.Values{}
	q.Set("filter[subscription_item_id]", itemID)
	q.Set("page[number]", strconv.Itoa(page))
	if size > 0 {
		q.Set("page[size]", strconv.Itoa(size))
	}

	var doc document
	var meta pageMeta
	if err := s.client.do(ctx, http.MethodGet, "/usage-records", q, nil, &doc); err != nil {
		return nil, meta, err
	}
	var resources []resource
	if err := json.Unmarshal(doc.Data, &resources); err != nil {
		return nil, meta, fmt.Errorf("decode usage records: %w", err)
	}
	if len(doc.Meta) > 0 {
		if err := json.Unmarshal(doc.Meta, &meta); err != nil {
			return nil, meta, fmt.Errorf("decode usage meta: %w", err)
		}
	}

	records := make([]usageRecordAttributes, 0, len(resources))
	for _, r := range resources {
		var attrs usageRecordAttributes
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return nil, meta, fmt.Errorf("decode usage record %s: %w", r.ID, err)
		}
		records = append(records, attrs)
	}
	return records, meta, nil
}

func (s *Strategy) sumUsageInRange(ctx context.Context, itemID string, start, end time.Time) (int64, error) {
	var total int64
	for page := 1; ; page++ {
		records, meta, err := s.listUsage(ctx, itemID, page, usagePageSize)
		if err != nil {
			return 0, err
		}
		for _, r := range records {
			if !r.CreatedAt.Before(start) && !r.CreatedAt.After(end) {
				total += r.Quantity
			}
		}
		if len(records) == 0 || page >= meta.Page.LastPage {
			return total, nil
		}
	}
}

func (s *Strategy) UpdateSubscriptionItem(ctx context.Context, params billing.UpdateSubscriptionItemParams) (*billing.Result, error) {
	body := map[string]any{
		"data": resource{
			Type:       "subscription-items",
			ID:         params.SubscriptionItemID,
			Attributes: marshalAttributes(map[string]int64{"quantity": params.Quantity}),
		},
	}
	path := "/subscription-items/" + url.PathEscape(params.SubscriptionItemID)
	if err := s.client.do(ctx, http.MethodPatch, path, nil, body, nil); err != nil {
		return nil, s.fail("updateSubscriptionItem", err)
	}
	return &billing.Result{Success: true}, nil
}

func (s *Strategy) GetPlanByID(ctx context.Context, planID string) (*billing.PlanDetails, error) {
	var attrs variantAttributes
	id, err := s.client.get(ctx, "/variants/"+url.PathEscape(planID), &attrs)
	if err != nil {
		return nil, s.fail("getPlanById", err)
	}
	return &billing.PlanDetails{
		ID:       id,
		Name:     attrs.Name,
		Interval: attrs.Interval,
		Amount:   attrs.Price,
	}, nil
}

func (s *Strategy) GetSubscription(ctx context.Context, subscriptionID string) (*billing.SubscriptionParams, error) {
	var attrs subscriptionAttributes
	id, err := s.client.get(ctx, "/subscriptions/"+url.PathEscape(subscriptionID), &attrs)
	if err != nil {
		return nil, s.fail("getSubscription", err)
	}
	return s.subscriptionParams(id, attrs, "")
}

// subscriptionParams maps a subscription resource. Lemon Squeezy carries no
// currency or price on subscriptions, so both come from the catalog entry of
// the subscribed variant.
func (s *Strategy) subscriptionParams(id string, attrs subscriptionAttributes, accountID string) (*billing.SubscriptionParams, error) {
	variantID := idString(attrs.VariantID)
	product, plan, err := s.catalog.ProductPlanPairByVariantID(variantID)
	if err != nil {
		return nil, err
	}
	item, err := s.catalog.LineItem(variantID)
	if err != nil {
		return nil, err
	}

	status := billing.NormalizeStatus(attrs.Status)
	out := &billing.SubscriptionParams{
		AccountID:         accountID,
		CustomerID:        idString(attrs.CustomerID),
		SubscriptionID:    id,
		Provider:          catalog.ProviderLemonSqueezy,
		Status:            status,
		Active:            billing.IsActiveStatus(status),
		CancelAtPeriodEnd: attrs.Cancelled,
		Currency:          product.Currency,
		PeriodStartsAt:    attrs.CreatedAt.UTC(),
		TrialEndsAt:       attrs.TrialEndsAt,
	}
	switch {
	case attrs.RenewsAt != nil:
		out.PeriodEndsAt = attrs.RenewsAt.UTC()
	case attrs.EndsAt != nil:
		out.PeriodEndsAt = attrs.EndsAt.UTC()
	}
	if attrs.TrialEndsAt != nil {
		start := attrs.CreatedAt.UTC()
		out.TrialStartsAt = &start
	}

	quantity := int64(1)
	itemID := id
	if fi := attrs.FirstSubscriptionItem; fi != nil {
		itemID = idString(fi.ID)
		if fi.Quantity > 0 {
			quantity = fi.Quantity
		}
	}
	out.LineItems = []billing.SubscriptionLineItem{{
		ID:             itemID,
		SubscriptionID: id,
		ProductID:      idString(attrs.ProductID),
		VariantID:      variantID,
		Quantity:       quantity,
		PriceAmount:    item.UnitAmount(),
		Interval:       string(plan.Interval),
		IntervalCount:  1,
		Type:           item.Type,
	}}
	return out, nil
}

var (
	_ billing.Strategy       = (*Strategy)(nil)
	_ billing.WebhookHandler = (*Strategy)(nil)
)

// Package stripeprovider implements the billing strategy and webhook
// handler for Stripe.
package stripeprovider

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
)

const metadataAccountID = "accountId"

type Config struct {
	SecretKey     string
	WebhookSecret string
}

// Strategy talks to Stripe on behalf of the billing gateway.
type Strategy struct {
	api           api
	catalog       *catalog.Config
	webhookSecret string
	now           func() time.Time
}

// New builds the Stripe adapter. The catalog resolves price ids to line item
// types when subscriptions are normalized.
func New(cfg Config, cat *catalog.Config) (*Strategy, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe: STRIPE_SECRET_KEY is not set")
	}
	return newStrategy(newClientAPI(cfg.SecretKey), cat, cfg.WebhookSecret), nil
}

func newStrategy(a api, cat *catalog.Config, webhookSecret string) *Strategy {
	return &Strategy{api: a, catalog: cat, webhookSecret: webhookSecret, now: time.Now}
}

func (s *Strategy) fail(op string, err error) error {
	fiberlog.Errorf("[Stripe] %s failed: %v", op, err)
	return billing.NewProviderError(catalog.ProviderStripe, op, err)
}

func (s *Strategy) CreateCheckoutSession(ctx context.Context, params billing.CheckoutSessionParams) (*billing.CheckoutSession, error) {
	sp := buildCheckoutParams(params)
	sp.Context = ctx

	session, err := s.api.NewCheckoutSession(sp)
	if err != nil {
		return nil, s.fail("createCheckoutSession", err)
	}
	return &billing.CheckoutSession{CheckoutToken: session.ClientSecret}, nil
}

func buildCheckoutParams(params billing.CheckoutSessionParams) *stripe.CheckoutSessionParams {
	recurring := params.Plan.PaymentType == catalog.PaymentTypeRecurring
	mode := stripe.CheckoutSessionModePayment
	if recurring {
		mode = stripe.CheckoutSessionModeSubscription
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.Plan.LineItems))
	for _, li := range params.Plan.LineItems {
		item := &stripe.CheckoutSessionLineItemParams{Price: stripe.String(li.ID)}
		switch li.Type {
		case catalog.LineItemMetered:
			// metered prices take no quantity
		case catalog.LineItemPerSeat:
			item.Quantity = stripe.Int64(params.QuantityFor(li.ID, 1))
		default:
			item.Quantity = stripe.Int64(1)
		}
		lineItems = append(lineItems, item)
	}

	sp := &stripe.CheckoutSessionParams{
		UIMode:            stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:              stripe.String(string(mode)),
		LineItems:         lineItems,
		ClientReferenceID: stripe.String(params.AccountID),
		ReturnURL:         stripe.String(checkoutReturnURL(params.ReturnURL)),
	}
	if recurring {
		sp.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataAccountID: params.AccountID},
		}
		if params.Plan.TrialDays > 0 {
			sp.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(params.Plan.TrialDays))
		}
	}

	switch {
	case params.CustomerID != "":
		sp.Customer = stripe.String(params.CustomerID)
	default:
		if params.CustomerEmail != "" {
			sp.CustomerEmail = stripe.String(params.CustomerEmail)
		}
		if !recurring {
			sp.CustomerCreation = stripe.String(string(stripe.CheckoutSessionCustomerCreationAlways))
		}
	}
	if params.EnableDiscountField {
		sp.AllowPromotionCodes = stripe.Bool(true)
	}
	return sp
}

func checkoutReturnURL(base string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "session_id={CHECKOUT_SESSION_ID}"
}

func (s *Strategy) RetrieveCheckoutSession(ctx context.Context, params billing.RetrieveCheckoutSessionParams) (*billing.CheckoutSessionStatus, error) {
	sp := &stripe.CheckoutSessionParams{}
	sp.Context = ctx
	session, err := s.api.GetCheckoutSession(params.SessionID, sp)
	if err != nil {
		return nil, s.fail("retrieveCheckoutSession", err)
	}

	open := session.Status == stripe.CheckoutSessionStatusOpen
	out := &billing.CheckoutSessionStatus{
		Status:        string(session.Status),
		IsSessionOpen: open,
	}
	if open {
		token := session.ClientSecret
		out.CheckoutToken = &token
	}
	if session.CustomerDetails != nil {
		out.CustomerEmail = session.CustomerDetails.Email
	}
	return out, nil
}

func (s *Strategy) CreateBillingPortalSession(ctx context.Context, params billing.PortalSessionParams) (*billing.PortalSession, error) {
	sp := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(params.CustomerID),
		ReturnURL: stripe.String(params.ReturnURL),
	}
	sp.Context = ctx
	session, err := s.api.NewPortalSession(sp)
	if err != nil {
		return nil, s.fail("createBillingPortalSession", err)
	}
	return &billing.PortalSession{URL: session.URL}, nil
}

func (s *Strategy) CancelSubscription(ctx context.Context, params billing.CancelSubscriptionParams) (*billing.Result, error) {
	sp := &stripe.SubscriptionCancelParams{InvoiceNow: stripe.Bool(params.InvoiceNow)}
	sp.Context = ctx
	if _, err := s.api.CancelSubscription(params.SubscriptionID, sp); err != nil {
		return nil, s.fail("cancelSubscription", err)
	}
	return &billing.Result{Success: true}, nil
}

// ReportUsage sends a billing meter event. params.ID is the Stripe customer.
func (s *Strategy) ReportUsage(ctx context.Context, params billing.ReportUsageParams) (*billing.Result, error) {
	if params.EventName == "" {
		return nil, &billing.ValidationError{Op: "reportUsage", Violations: []catalog.Violation{
			{Path: []string{"eventName"}, Message: "is required for Stripe meter events"},
		}}
	}
	sp := &stripe.BillingMeterEventParams{
		EventName:  stripe.String(params.EventName),
		Identifier: stripe.String(uuid.NewString()),
		Timestamp:  stripe.Int64(s.now().Unix()),
		Payload: map[string]string{
			"stripe_customer_id": params.ID,
			"value":              strconv.FormatInt(params.Quantity, 10),
		},
	}
	sp.Context = ctx
	if _, err := s.api.NewMeterEvent(sp); err != nil {
		return nil, s.fail("reportUsage", err)
	}
	return &billing.Result{Success: true}, nil
}

// QueryUsage sums the meter event summaries of a customer. params.ID is the
// meter id; Stripe only supports time range filters.
func (s *Strategy) QueryUsage(ctx context.Context, params billing.QueryUsageParams) (*billing.UsageValue, error) {
	if !params.Filter.IsRange() {
		return nil, &billing.ValidationError{Op: "queryUsage", Violations: []catalog.Violation{
			{Path: []string{"filter"}, Message: "Stripe requires startTime and endTime"},
		}}
	}
	sp := &stripe.BillingMeterEventSummaryListParams{
		ID:        stripe.String(params.ID),
		Customer:  stripe.String(params.CustomerID),
		StartTime: stripe.Int64(params.Filter.StartTime.Unix()),
		EndTime:   stripe.Int64(params.Filter.EndTime.Unix()),
	}
	sp.Context = ctx
	summaries, err := s.api.ListMeterEventSummaries(sp)
	if err != nil {
		return nil, s.fail("queryUsage", err)
	}
	var total float64
	for _, summary := range summaries {
		total += summary.AggregatedValue
	}
	return &billing.UsageValue{Value: total}, nil
}

func (s *Strategy) UpdateSubscriptionItem(ctx context.Context, params billing.UpdateSubscriptionItemParams) (*billing.Result, error) {
	sp := &stripe.SubscriptionItemParams{Quantity: stripe.Int64(params.Quantity)}
	sp.Context = ctx
	if _, err := s.api.UpdateSubscriptionItem(params.SubscriptionItemID, sp); err != nil {
		return nil, s.fail("updateSubscriptionItem", err)
	}
	return &billing.Result{Success: true}, nil
}

func (s *Strategy) GetSubscription(ctx context.Context, subscriptionID string) (*billing.SubscriptionParams, error) {
	sp := &stripe.SubscriptionParams{}
	sp.Context = ctx
	sub, err := s.api.GetSubscription(subscriptionID, sp)
	if err != nil {
		return nil, s.fail("getSubscription", err)
	}
	return s.subscriptionParams(sub, "")
}

func (s *Strategy) GetPlanByID(ctx context.Context, planID string) (*billing.PlanDetails, error) {
	sp := &stripe.PriceParams{}
	sp.Context = ctx
	sp.AddExpand("product")
	price, err := s.api.GetPrice(planID, sp)
	if err != nil {
		return nil, s.fail("getPlanById", err)
	}

	out := &billing.PlanDetails{ID: price.ID, Name: price.Nickname, Amount: price.UnitAmount}
	if price.Product != nil && price.Product.Name != "" {
		out.Name = price.Product.Name
	}
	if price.Recurring != nil {
		out.Interval = string(price.Recurring.Interval)
	}
	return out, nil
}

// subscriptionParams maps a Stripe subscription onto the canonical shape.
// accountID overrides the accountId metadata when set.
func (s *Strategy) subscriptionParams(sub *stripe.Subscription, accountID string) (*billing.SubscriptionParams, error) {
	if accountID == "" {
		accountID = sub.Metadata[metadataAccountID]
	}
	out := &billing.SubscriptionParams{
		AccountID:         accountID,
		SubscriptionID:    sub.ID,
		Provider:          catalog.ProviderStripe,
		Status:            string(sub.Status),
		Active:            billing.IsActiveStatus(string(sub.Status)),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Currency:          string(sub.Currency),
		TrialStartsAt:     unixPtr(sub.TrialStart),
		TrialEndsAt:       unixPtr(sub.TrialEnd),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}

	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			li, err := s.lineItem(sub.ID, item)
			if err != nil {
				return nil, err
			}
			out.LineItems = append(out.LineItems, li)

			if out.PeriodStartsAt.IsZero() && item.CurrentPeriodStart > 0 {
				out.PeriodStartsAt = time.Unix(item.CurrentPeriodStart, 0).UTC()
				out.PeriodEndsAt = time.Unix(item.CurrentPeriodEnd, 0).UTC()
			}
		}
	}
	return out, nil
}

func (s *Strategy) lineItem(subscriptionID string, item *stripe.SubscriptionItem) (billing.SubscriptionLineItem, error) {
	li := billing.SubscriptionLineItem{
		ID:             item.ID,
		SubscriptionID: subscriptionID,
		Quantity:       item.Quantity,
	}
	if item.Price == nil {
		return li, errors.New("stripe: subscription item without price")
	}
	li.VariantID = item.Price.ID
	li.PriceAmount = item.Price.UnitAmount
	if item.Price.Product != nil {
		li.ProductID = item.Price.Product.ID
	}
	if item.Price.Recurring != nil {
		li.Interval = string(item.Price.Recurring.Interval)
		li.IntervalCount = item.Price.Recurring.IntervalCount
	}

	itemType, err := s.catalog.LineItemType(item.Price.ID)
	if err != nil {
		return li, err
	}
	li.Type = itemType
	return li, nil
}

func unixPtr(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

var (
	_ billing.Strategy       = (*Strategy)(nil)
	_ billing.WebhookHandler = (*Strategy)(nil)
)

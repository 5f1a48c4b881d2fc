package stripeprovider

import (
	"errors"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

const testAccountID = "5f4c2e38-2a53-4f0f-9a0c-7d1c1d5f3a10"

var errStripeDown = errors.New("stripe: api key sk_test_123 is invalid")

type fakeAPI struct {
	checkoutParams *stripe.CheckoutSessionParams
	checkout       *stripe.CheckoutSession
	lineItems      []*stripe.LineItem
	portalParams   *stripe.BillingPortalSessionParams
	cancelID       string
	cancelParams   *stripe.SubscriptionCancelParams
	itemID         string
	itemParams     *stripe.SubscriptionItemParams
	meterEvent     *stripe.BillingMeterEventParams
	summaryParams  *stripe.BillingMeterEventSummaryListParams
	summaries      []*stripe.BillingMeterEventSummary
	subscriptions  map[string]*stripe.Subscription
	price          *stripe.Price
	err            error
}

func (f *fakeAPI) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.checkoutParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", ClientSecret: "cs_test_1_secret"}, nil
}

func (f *fakeAPI) GetCheckoutSession(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.checkout, nil
}

func (f *fakeAPI) ListCheckoutLineItems(*stripe.CheckoutSessionListLineItemsParams) ([]*stripe.LineItem, error) {
	return f.lineItems, f.err
}

func (f *fakeAPI) NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	f.portalParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/session/test"}, nil
}

func (f *fakeAPI) GetSubscription(id string, _ *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func (f *fakeAPI) CancelSubscription(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	f.cancelID, f.cancelParams = id, params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusCanceled}, nil
}

func (f *fakeAPI) UpdateSubscriptionItem(id string, params *stripe.SubscriptionItemParams) (*stripe.SubscriptionItem, error) {
	f.itemID, f.itemParams = id, params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.SubscriptionItem{ID: id, Quantity: *params.Quantity}, nil
}

func (f *fakeAPI) GetPrice(string, *stripe.PriceParams) (*stripe.Price, error) {
	return f.price, f.err
}

func (f *fakeAPI) NewMeterEvent(params *stripe.BillingMeterEventParams) (*stripe.BillingMeterEvent, error) {
	f.meterEvent = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.BillingMeterEvent{EventName: *params.EventName}, nil
}

func (f *fakeAPI) ListMeterEventSummaries(params *stripe.BillingMeterEventSummaryListParams) ([]*stripe.BillingMeterEventSummary, error) {
	f.summaryParams = params
	return f.summaries, f.err
}

func testCatalog() *catalog.Config {
	return catalog.MustNew(catalog.Config{
		Provider: catalog.ProviderStripe,
		Products: []catalog.Product{
			{
				ID:       "pro",
				Name:     "Pro",
				Currency: "USD",
				Plans: []catalog.Plan{
					{
						ID:          "pro-monthly",
						Name:        "Pro Monthly",
						Interval:    catalog.IntervalMonth,
						PaymentType: catalog.PaymentTypeRecurring,
						TrialDays:   14,
						LineItems: []catalog.LineItem{
							{ID: "price_base", Name: "Base", Cost: decimal.NewFromInt(29), Type: catalog.LineItemFlat},
							{ID: "price_seats", Name: "Seats", Cost: decimal.NewFromInt(9), Type: catalog.LineItemPerSeat},
							{
								ID:   "price_api",
								Name: "API calls",
								Type: catalog.LineItemMetered,
								Unit: "call",
								Tiers: []catalog.Tier{
									{Cost: decimal.NewFromFloat(0.01), UpTo: catalog.UpTo(1000)},
									{Cost: decimal.NewFromFloat(0.005), UpTo: catalog.Unlimited()},
								},
							},
						},
					},
				},
			},
			{
				ID:       "lifetime",
				Name:     "Lifetime",
				Currency: "USD",
				Plans: []catalog.Plan{
					{
						ID:          "lifetime",
						Name:        "Lifetime",
						PaymentType: catalog.PaymentTypeOneTime,
						LineItems: []catalog.LineItem{
							{ID: "price_lifetime", Name: "Lifetime", Cost: decimal.NewFromInt(299), Type: catalog.LineItemFlat},
						},
					},
				},
			},
		},
	})
}

func testSubscription(status stripe.SubscriptionStatus) *stripe.Subscription {
	return &stripe.Subscription{
		ID:       "sub_1",
		Status:   status,
		Currency: stripe.CurrencyUSD,
		Customer: &stripe.Customer{ID: "cus_1"},
		Metadata: map[string]string{metadataAccountID: testAccountID},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					ID:                 "si_base",
					Quantity:           1,
					CurrentPeriodStart: 1700000000,
					CurrentPeriodEnd:   1702592000,
					Price: &stripe.Price{
						ID:         "price_base",
						UnitAmount: 2900,
						Product:    &stripe.Product{ID: "prod_pro"},
						Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth, IntervalCount: 1},
					},
				},
				{
					ID:       "si_seats",
					Quantity: 4,
					Price: &stripe.Price{
						ID:         "price_seats",
						UnitAmount: 900,
						Product:    &stripe.Product{ID: "prod_pro"},
						Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth, IntervalCount: 1},
					},
				},
			},
		},
	}
}

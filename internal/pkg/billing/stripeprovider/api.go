package stripeprovider

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// api is the slice of the Stripe SDK the adapter uses.
type api interface {
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	ListCheckoutLineItems(params *stripe.CheckoutSessionListLineItemsParams) ([]*stripe.LineItem, error)
	NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	GetSubscription(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	CancelSubscription(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
	UpdateSubscriptionItem(id string, params *stripe.SubscriptionItemParams) (*stripe.SubscriptionItem, error)
	GetPrice(id string, params *stripe.PriceParams) (*stripe.Price, error)
	NewMeterEvent(params *stripe.BillingMeterEventParams) (*stripe.BillingMeterEvent, error)
	ListMeterEventSummaries(params *stripe.BillingMeterEventSummaryListParams) ([]*stripe.BillingMeterEventSummary, error)
}

type clientAPI struct {
	sc *client.API
}

func newClientAPI(secretKey string) api {
	return clientAPI{sc: client.New(secretKey, nil)}
}

func (c clientAPI) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return c.sc.CheckoutSessions.New(params)
}

func (c clientAPI) GetCheckoutSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return c.sc.CheckoutSessions.Get(id, params)
}

func (c clientAPI) ListCheckoutLineItems(params *stripe.CheckoutSessionListLineItemsParams) ([]*stripe.LineItem, error) {
	it := c.sc.CheckoutSessions.ListLineItems(params)
	var items []*stripe.LineItem
	for it.Next() {
		items = append(items, it.LineItem())
	}
	return items, it.Err()
}

func (c clientAPI) NewPortalSession(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	return c.sc.BillingPortalSessions.New(params)
}

func (c clientAPI) GetSubscription(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return c.sc.Subscriptions.Get(id, params)
}

func (c clientAPI) CancelSubscription(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	return c.sc.Subscriptions.Cancel(id, params)
}

func (c clientAPI) UpdateSubscriptionItem(id string, params *stripe.SubscriptionItemParams) (*stripe.SubscriptionItem, error) {
	return c.sc.SubscriptionItems.Update(id, params)
}

func (c clientAPI) GetPrice(id string, params *stripe.PriceParams) (*stripe.Price, error) {
	return c.sc.Prices.Get(id, params)
}

func (c clientAPI) NewMeterEvent(params *stripe.BillingMeterEventParams) (*stripe.BillingMeterEvent, error) {
	return c.sc.BillingMeterEvents.New(params)
}

func (c clientAPI) ListMeterEventSummaries(params *stripe.BillingMeterEventSummaryListParams) ([]*stripe.BillingMeterEventSummary, error) {
	it := c.sc.BillingMeterEventSummaries.List(params)
	var summaries []*stripe.BillingMeterEventSummary
	for it.Next() {
		summaries = append(summaries, it.BillingMeterEventSummary())
	}
	return summaries, it.Err()
}

package lemonsqueezy

import (
	"context"
	"net/http"
	"testing"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(body string) billing.WebhookRequest {
	h := http.Header{}
	h.Set(signatureHeader, billing.SignHMACSHA256Hex([]byte(body), testSigningSecret))
	return billing.WebhookRequest{Body: []byte(body), Header: h}
}

func webhookBody(eventName, data string) string {
	return `{"meta":{"event_name":"` + eventName + `","custom_data":{"account_id":"` + testAccountID + `"}},"data":` + data + `}`
}

func normalize(t *testing.T, s *Strategy, body string) *billing.Event {
	t.Helper()
	vendor, err := s.VerifyWebhookSignature(context.Background(), signed(body))
	require.NoError(t, err)
	event, err := s.NormalizeEvent(context.Background(), vendor)
	require.NoError(t, err)
	return event
}

const subscriptionData = `{"type":"subscriptions","id":"1","attributes":{
	"customer_id":7,"product_id":9,"variant_id":101,"status":"active","cancelled":true,
	"renews_at":"2024-02-01T00:00:00.000000Z","created_at":"2024-01-01T00:00:00.000000Z",
	"first_subscription_item":{"id":55,"subscription_id":1,"quantity":2}
}}`

func TestVerifyWebhookSignature(t *testing.T) {
	s, _ := newTestStrategy(t, nil)
	body := webhookBody("subscription_updated", subscriptionData)

	vendor, err := s.VerifyWebhookSignature(context.Background(), signed(body))
	require.NoError(t, err)
	assert.Equal(t, catalog.ProviderLemonSqueezy, vendor.Provider)
	assert.Equal(t, "subscription_updated", vendor.Type)
	assert.Empty(t, vendor.ID)

	req := signed(body)
	req.Body = []byte(webhookBody("subscription_expired", subscriptionData))
	_, err = s.VerifyWebhookSignature(context.Background(), req)
	assert.ErrorIs(t, err, billing.ErrInvalidSignature)

	req.Header.Del(signatureHeader)
	_, err = s.VerifyWebhookSignature(context.Background(), req)
	assert.ErrorIs(t, err, billing.ErrInvalidSignature)
}

func TestNormalize_SubscriptionCreatedIsCheckout(t *testing.T) {
	s, _ := newTestStrategy(t, nil)

	event := normalize(t, s, webhookBody("subscription_created", subscriptionData))
	assert.Equal(t, billing.EventCheckoutCompleted, event.Kind)
	require.NotNil(t, event.Subscription)
	assert.Equal(t, testAccountID, event.Subscription.AccountID)
	assert.Equal(t, "7", event.CustomerID)
	assert.True(t, event.Subscription.CancelAtPeriodEnd)
	assert.Equal(t, int64(2), event.Subscription.LineItems[0].Quantity)
}

func TestNormalize_SubscriptionUpdatedAndExpired(t *testing.T) {
	s, _ := newTestStrategy(t, nil)

	event := normalize(t, s, webhookBody("subscription_updated", subscriptionData))
	assert.Equal(t, billing.EventSubscriptionUpdated, event.Kind)
	assert.Equal(t, "active", event.Subscription.Status)

	event = normalize(t, s, webhookBody("subscription_expired", subscriptionData))
	assert.Equal(t, billing.EventSubscriptionDeleted, event.Kind)
	assert.Equal(t, "1", event.SubscriptionID)
}

func TestNormalize_CancelledStatus(t *testing.T) {
	s, _ := newTestStrategy(t, nil)
	data := `{"type":"subscriptions","id":"1","attributes":{"customer_id":7,"variant_id":101,"status":"cancelled","created_at":"2024-01-01T00:00:00Z","ends_at":"2024-02-01T00:00:00Z"}}`

	event := normalize(t, s, webhookBody("subscription_updated", data))
	assert.Equal(t, "canceled", event.Subscription.Status)
	assert.False(t, event.Subscription.Active)
	assert.Equal(t, int64(1706745600), event.Subscription.PeriodEndsAt.Unix())
}

func TestNormalize_OrderCreated(t *testing.T) {
	s, _ := newTestStrategy(t, nil)

	oneTime := `{"type":"orders","id":"3","attributes":{"customer_id":7,"currency":"EUR","total":19900,"status":"paid",
		"first_order_item":{"id":11,"order_id":3,"product_id":8,"variant_id":202,"price":19900}}}`
	event := normalize(t, s, webhookBody("order_created", oneTime))
	assert.Equal(t, billing.EventCheckoutCompleted, event.Kind)
	require.NotNil(t, event.Order)
	assert.Equal(t, billing.OrderSucceeded, event.Order.Status)
	assert.Equal(t, "3", event.Order.OrderID)
	assert.Equal(t, testAccountID, event.Order.AccountID)
	assert.Equal(t, int64(1), event.Order.LineItems[0].Quantity)

	recurring := `{"type":"orders","id":"4","attributes":{"customer_id":7,"currency":"EUR","total":1950,"status":"paid",
		"first_order_item":{"id":12,"order_id":4,"product_id":9,"variant_id":101,"price":1950}}}`
	event = normalize(t, s, webhookBody("order_created", recurring))
	assert.Equal(t, billing.EventOther, event.Kind)
	assert.Nil(t, event.Order)
}

func TestNormalize_PaymentSuccessFetchesSubscription(t *testing.T) {
	s, api := newTestStrategy(t, map[string]string{"GET /subscriptions/1": subscriptionDoc})

	invoice := `{"type":"subscription-invoices","id":"900","attributes":{"subscription_id":1,"customer_id":7,"status":"paid"}}`
	event := normalize(t, s, webhookBody("subscription_payment_success", invoice))
	assert.Equal(t, billing.EventInvoicePaid, event.Kind)
	assert.Equal(t, "1", event.Subscription.SubscriptionID)
	assert.Equal(t, testAccountID, event.Subscription.AccountID)
	assert.Equal(t, "/subscriptions/1", api.last().Path)
}

func TestNormalize_UnknownEventIsOther(t *testing.T) {
	s, _ := newTestStrategy(t, nil)

	event := normalize(t, s, webhookBody("license_key_created", `{"type":"license-keys","id":"1","attributes":{}}`))
	assert.Equal(t, billing.EventOther, event.Kind)
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnEvent_PostsOrderToWebhook(t *testing.T) {
	var got slack.WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.OnEvent(context.Background(), &billing.Event{
		Kind:     billing.EventCheckoutCompleted,
		Provider: catalog.ProviderStripe,
		Order:    &billing.OrderParams{OrderID: "cs_1", AccountID: "acc-1", TotalAmount: 29900, Currency: "usd"},
	})
	require.NoError(t, err)
	assert.Equal(t, ":moneybag: New *stripe* order `cs_1` for account `acc-1`: 299.00 USD", got.Text)
	require.NotNil(t, got.Blocks)
	assert.Len(t, got.Blocks.BlockSet, 1)
}

func TestOnEvent_SwallowsSlackErrors(t *testing.T) {
	n := NewSlackNotifier("https://hooks.slack.invalid/x")
	n.post = func(context.Context, string, *slack.WebhookMessage) error { return errors.New("boom") }

	err := n.OnEvent(context.Background(), &billing.Event{Kind: billing.EventPaymentFailed, Provider: catalog.ProviderStripe, SessionID: "cs_2"})
	assert.NoError(t, err)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name  string
		event billing.Event
		want  string
	}{
		{
			name: "subscription",
			event: billing.Event{Kind: billing.EventCheckoutCompleted, Provider: catalog.ProviderLemonSqueezy,
				Subscription: &billing.SubscriptionParams{SubscriptionID: "1", AccountID: "acc-1", Status: "trialing"}},
			want: ":tada: New *lemon-squeezy* subscription `1` for account `acc-1` (status trialing)",
		},
		{
			name:  "payment failed",
			event: billing.Event{Kind: billing.EventPaymentFailed, Provider: catalog.ProviderStripe, SessionID: "cs_9"},
			want:  ":warning: *stripe* payment failed for checkout session `cs_9`",
		},
		{
			name:  "other",
			event: billing.Event{Kind: billing.EventOther},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, message(&tt.event))
		})
	}
}

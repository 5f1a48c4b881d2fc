package billing

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
)

// Strategy is the contract every billing provider adapter implements.
type Strategy interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, params RetrieveCheckoutSessionParams) (*CheckoutSessionStatus, error)
	CreateBillingPortalSession(ctx context.Context, params PortalSessionParams) (*PortalSession, error)
	CancelSubscription(ctx context.Context, params CancelSubscriptionParams) (*Result, error)
	ReportUsage(ctx context.Context, params ReportUsageParams) (*Result, error)
	QueryUsage(ctx context.Context, params QueryUsageParams) (*UsageValue, error)
	UpdateSubscriptionItem(ctx context.Context, params UpdateSubscriptionItemParams) (*Result, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionParams, error)
	GetPlanByID(ctx context.Context, planID string) (*PlanDetails, error)
}

// WebhookHandler verifies and normalizes provider webhooks.
type WebhookHandler interface {
	// VerifyWebhookSignature authenticates the raw request. Failures wrap
	// ErrInvalidSignature.
	VerifyWebhookSignature(ctx context.Context, req WebhookRequest) (*VendorEvent, error)
	// NormalizeEvent maps a verified vendor event onto exactly one canonical Event.
	NormalizeEvent(ctx context.Context, event *VendorEvent) (*Event, error)
}

// ProviderFactory builds the adapters of one provider. A zero value marks a
// provider the schema knows but no adapter implements.
type ProviderFactory struct {
	NewStrategy       func() (Strategy, error)
	NewWebhookHandler func() (WebhookHandler, error)
}

// Registry maps providers to their factories. It is populated once at
// startup from a literal map so every provider is listed explicitly.
type Registry map[catalog.Provider]ProviderFactory

func (r Registry) Strategy(provider catalog.Provider) (Strategy, error) {
	f, ok := r[provider]
	if !ok || f.NewStrategy == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotSupported, provider)
	}
	return f.NewStrategy()
}

func (r Registry) WebhookHandler(provider catalog.Provider) (WebhookHandler, error) {
	f, ok := r[provider]
	if !ok || f.NewWebhookHandler == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotSupported, provider)
	}
	return f.NewWebhookHandler()
}

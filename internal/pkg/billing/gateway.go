package billing

import (
	"context"
	"strings"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/go-playground/validator/v10"
)

var paramsValidator = catalog.NewValidator()

// Gateway validates every request before handing it to the provider
// strategy, so malformed input never reaches a vendor API.
type Gateway struct {
	provider Provider
	strategy Strategy
	validate *validator.Validate
}

// NewGateway wraps strategy for provider.
func NewGateway(provider Provider, strategy Strategy) *Gateway {
	return &Gateway{provider: provider, strategy: strategy, validate: paramsValidator}
}

// Provider returns the provider this gateway talks to.
func (g *Gateway) Provider() Provider {
	return g.provider
}

func (g *Gateway) check(op string, params any) error {
	if err := g.validate.Struct(params); err != nil {
		return &ValidationError{Op: op, Violations: catalog.ViolationsFromError(err)}
	}
	return nil
}

func (g *Gateway) checkID(op, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Op: op, Violations: []catalog.Violation{{Path: []string{field}, Message: "is required"}}}
	}
	return nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	if err := g.check("createCheckoutSession", params); err != nil {
		return nil, err
	}
	return g.strategy.CreateCheckoutSession(ctx, params)
}

func (g *Gateway) RetrieveCheckoutSession(ctx context.Context, params RetrieveCheckoutSessionParams) (*CheckoutSessionStatus, error) {
	if err := g.check("retrieveCheckoutSession", params); err != nil {
		return nil, err
	}
	return g.strategy.RetrieveCheckoutSession(ctx, params)
}

func (g *Gateway) CreateBillingPortalSession(ctx context.Context, params PortalSessionParams) (*PortalSession, error) {
	if err := g.check("createBillingPortalSession", params); err != nil {
		return nil, err
	}
	return g.strategy.CreateBillingPortalSession(ctx, params)
}

func (g *Gateway) CancelSubscription(ctx context.Context, params CancelSubscriptionParams) (*Result, error) {
	if err := g.check("cancelSubscription", params); err != nil {
		return nil, err
	}
	return g.strategy.CancelSubscription(ctx, params)
}

func (g *Gateway) ReportUsage(ctx context.Context, params ReportUsageParams) (*Result, error) {
	if err := g.check("reportUsage", params); err != nil {
		return nil, err
	}
	return g.strategy.ReportUsage(ctx, params)
}

func (g *Gateway) QueryUsage(ctx context.Context, params QueryUsageParams) (*UsageValue, error) {
	if err := g.check("queryUsage", params); err != nil {
		return nil, err
	}
	if params.Filter.IsRange() && params.Filter.EndTime.Before(params.Filter.StartTime) {
		return nil, &ValidationError{Op: "queryUsage", Violations: []catalog.Violation{
			{Path: []string{"filter", "endTime"}, Message: "must not be before startTime"},
		}}
	}
	return g.strategy.QueryUsage(ctx, params)
}

func (g *Gateway) UpdateSubscriptionItem(ctx context.Context, params UpdateSubscriptionItemParams) (*Result, error) {
	if err := g.check("updateSubscriptionItem", params); err != nil {
		return nil, err
	}
	return g.strategy.UpdateSubscriptionItem(ctx, params)
}

func (g *Gateway) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionParams, error) {
	if err := g.checkID("getSubscription", "subscriptionId", subscriptionID); err != nil {
		return nil, err
	}
	return g.strategy.GetSubscription(ctx, subscriptionID)
}

func (g *Gateway) GetPlanByID(ctx context.Context, planID string) (*PlanDetails, error) {
	if err := g.checkID("getPlanById", "planId", planID); err != nil {
		return nil, err
	}
	return g.strategy.GetPlanByID(ctx, planID)
}

// ProviderSource yields the provider configured for the running application.
type ProviderSource interface {
	Provider(ctx context.Context) (Provider, error)
}

// GatewayFactory builds gateways from the provider registry. Strategies are
// constructed per call so a provider switch takes effect on the next request.
type GatewayFactory struct {
	registry Registry
	source   ProviderSource
}

func NewGatewayFactory(registry Registry, source ProviderSource) *GatewayFactory {
	return &GatewayFactory{registry: registry, source: source}
}

// ForProvider returns a gateway for an explicit provider, e.g. the provider
// stored on an existing subscription row.
func (f *GatewayFactory) ForProvider(provider Provider) (*Gateway, error) {
	strategy, err := f.registry.Strategy(provider)
	if err != nil {
		return nil, err
	}
	return NewGateway(provider, strategy), nil
}

// Resolve returns the gateway of the currently configured provider.
func (f *GatewayFactory) Resolve(ctx context.Context) (*Gateway, error) {
	provider, err := f.source.Provider(ctx)
	if err != nil {
		return nil, err
	}
	return f.ForProvider(provider)
}

// Package providers wires the provider adapters into a billing.Registry.
package providers

import (
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/lemonsqueezy"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/stripeprovider"
)

type Config struct {
	Stripe       stripeprovider.Config
	LemonSqueezy lemonsqueezy.Config
}

// NewRegistry lists every provider explicitly. Paddle is known to the catalog
// schema but has no adapter, so its factory stays empty.
func NewRegistry(cfg Config, cat *catalog.Config) billing.Registry {
	return billing.Registry{
		catalog.ProviderStripe: {
			NewStrategy: func() (billing.Strategy, error) {
				return stripeprovider.New(cfg.Stripe, cat)
			},
			NewWebhookHandler: func() (billing.WebhookHandler, error) {
				return stripeprovider.New(cfg.Stripe, cat)
			},
		},
		catalog.ProviderLemonSqueezy: {
			NewStrategy: func() (billing.Strategy, error) {
				return lemonsqueezy.New(cfg.LemonSqueezy, cat)
			},
			NewWebhookHandler: func() (billing.WebhookHandler, error) {
				return lemonsqueezy.New(cfg.LemonSqueezy, cat)
			},
		},
		catalog.ProviderPaddle: {},
	}
}

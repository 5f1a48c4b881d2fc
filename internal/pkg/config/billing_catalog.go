package config

import (
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
)

var starterFeatures = []string{"Unlimited projects", "Email support", "Team invitations"}
var proFeatures = []string{"Everything in Starter", "Per seat billing", "Priority support"}

// BillingCatalog returns the product catalog for provider, validated.
// An invalid catalog is a programming error and panics at startup.
func BillingCatalog(provider catalog.Provider) *catalog.Config {
	switch provider {
	case catalog.ProviderLemonSqueezy:
		return catalog.MustNew(lemonSqueezyCatalog())
	default:
		cfg := stripeCatalog()
		cfg.Provider = provider
		return catalog.MustNew(cfg)
	}
}

func stripeCatalog() catalog.Config {
	return catalog.Config{
		Provider: catalog.ProviderStripe,
		Products: []catalog.Product{
			{
				ID:          "starter",
				Name:        "Starter",
				Description: "The perfect plan to get started",
				Currency:    "USD",
				Badge:       "Value",
				Features:    starterFeatures,
				Plans: []catalog.Plan{
					{
						ID:          "starter-monthly",
						Name:        "Starter Monthly",
						Interval:    catalog.IntervalMonth,
						PaymentType: catalog.PaymentTypeRecurring,
						TrialDays:   7,
						LineItems: []catalog.LineItem{
							{ID: "price_starter_monthly", Name: "Base", Cost: decimal.RequireFromString("9.99"), Type: catalog.LineItemFlat},
						},
					},
					{
						ID:          "starter-yearly",
						Name:        "Starter Yearly",
						Interval:    catalog.IntervalYear,
						PaymentType: catalog.PaymentTypeRecurring,
						LineItems: []catalog.LineItem{
							{ID: "price_starter_yearly", Name: "Base", Cost: decimal.RequireFromString("99.99"), Type: catalog.LineItemFlat},
						},
					},
				},
			},
			{
				ID:                  "pro",
				Name:                "Pro",
				Description:         "For teams that bill per seat",
				Currency:            "USD",
				Badge:               "Popular",
				Highlighted:         true,
				EnableDiscountField: true,
				Features:            proFeatures,
				Plans: []catalog.Plan{
					{
						ID:          "pro-monthly",
						Name:        "Pro Monthly",
						Interval:    catalog.IntervalMonth,
						PaymentType: catalog.PaymentTypeRecurring,
						LineItems: []catalog.LineItem{
							{ID: "price_pro_monthly", Name: "Base", Cost: decimal.RequireFromString("19.99"), Type: catalog.LineItemFlat},
							{ID: "price_pro_seats", Name: "Seats", Cost: decimal.RequireFromString("4.99"), Type: catalog.LineItemPerSeat},
							{
								ID:   "price_pro_api_requests",
								Name: "API requests",
								Type: catalog.LineItemMetered,
								Unit: "requests",
								Tiers: []catalog.Tier{
									{Cost: decimal.Zero, UpTo: catalog.UpTo(1000)},
									{Cost: decimal.RequireFromString("0.01"), UpTo: catalog.Unlimited()},
								},
							},
						},
					},
				},
			},
			{
				ID:       "enterprise",
				Name:     "Enterprise",
				Currency: "USD",
				Features: []string{"Everything in Pro", "Dedicated support"},
				Plans: []catalog.Plan{
					{
						ID:          "enterprise",
						Name:        "Enterprise",
						PaymentType: catalog.PaymentTypeRecurring,
						Interval:    catalog.IntervalMonth,
						Custom:      true,
						Label:       "Contact us",
						ButtonLabel: "Contact us",
						Href:        "/contact",
					},
				},
			},
			{
				ID:       "lifetime",
				Name:     "Lifetime",
				Currency: "USD",
				Features: []string{"Pay once", "All Starter features"},
				Plans: []catalog.Plan{
					{
						ID:          "lifetime",
						Name:        "Lifetime",
						PaymentType: catalog.PaymentTypeOneTime,
						LineItems: []catalog.LineItem{
							{ID: "price_lifetime", Name: "Lifetime", Cost: decimal.RequireFromString("299"), Type: catalog.LineItemFlat},
						},
					},
				},
			},
		},
	}
}

func lemonSqueezyCatalog() catalog.Config {
	setupFee := decimal.RequireFromString("10")
	return catalog.Config{
		Provider: catalog.ProviderLemonSqueezy,
		Products: []catalog.Product{
			{
				ID:       "starter",
				Name:     "Starter",
				Currency: "USD",
				Features: starterFeatures,
				Plans: []catalog.Plan{
					{
						ID:          "starter-monthly",
						Name:        "Starter Monthly",
						Interval:    catalog.IntervalMonth,
						PaymentType: catalog.PaymentTypeRecurring,
						LineItems: []catalog.LineItem{
							{ID: "101001", Name: "Base", Cost: decimal.RequireFromString("9.99"), Type: catalog.LineItemFlat, SetupFee: &setupFee},
						},
					},
					{
						ID:          "starter-yearly",
						Name:        "Starter Yearly",
						Interval:    catalog.IntervalYear,
						PaymentType: catalog.PaymentTypeRecurring,
						LineItems: []catalog.LineItem{
							{ID: "101002", Name: "Base", Cost: decimal.RequireFromString("99.99"), Type: catalog.LineItemFlat},
						},
					},
				},
			},
			{
				ID:          "pro",
				Name:        "Pro",
				Currency:    "USD",
				Highlighted: true,
				Features:    proFeatures,
				Plans: []catalog.Plan{
					{
						ID:          "pro-monthly",
						Name:        "Pro Monthly",
						Interval:    catalog.IntervalMonth,
						PaymentType: catalog.PaymentTypeRecurring,
						LineItems: []catalog.LineItem{
							{ID: "101003", Name: "Seats", Cost: decimal.RequireFromString("4.99"), Type: catalog.LineItemPerSeat},
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
							{ID: "101004", Name: "Lifetime", Cost: decimal.RequireFromString("299"), Type: catalog.LineItemFlat},
						},
					},
				},
			},
		},
	}
}

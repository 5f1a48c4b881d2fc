package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Provider: ProviderStripe,
		Products: []Product{
			{
				ID:       "starter",
				Name:     "Starter",
				Currency: "USD",
				Features: []string{"Feature 1"},
				Plans: []Plan{
					{
						ID:          "starter-monthly",
						Name:        "Starter Monthly",
						Interval:    IntervalMonth,
						PaymentType: PaymentTypeRecurring,
						LineItems: []LineItem{
							{ID: "price_starter_monthly", Name: "Base", Cost: decimal.NewFromFloat(9.99), Type: LineItemFlat},
						},
					},
					{
						ID:          "starter-yearly",
						Name:        "Starter Yearly",
						Interval:    IntervalYear,
						PaymentType: PaymentTypeRecurring,
						LineItems: []LineItem{
							{ID: "price_starter_yearly", Name: "Base", Cost: decimal.NewFromInt(99), Type: LineItemFlat},
							{ID: "price_starter_seats", Name: "Seats", Cost: decimal.NewFromInt(5), Type: LineItemPerSeat},
						},
					},
				},
			},
			{
				ID:       "lifetime",
				Name:     "Lifetime",
				Currency: "USD",
				Plans: []Plan{
					{
						ID:          "lifetime",
						Name:        "Lifetime",
						PaymentType: PaymentTypeOneTime,
						LineItems: []LineItem{
							{ID: "price_lifetime", Name: "Lifetime", Cost: decimal.NewFromInt(299), Type: LineItemFlat},
						},
					},
				},
			},
		},
	}
}

func hasViolation(violations []Violation, message string, suffix ...string) bool {
	for _, v := range violations {
		if v.Message != message {
			continue
		}
		if len(v.Path) < len(suffix) {
			continue
		}
		tail := v.Path[len(v.Path)-len(suffix):]
		match := true
		for i := range suffix {
			if tail[i] != suffix[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestNew_ValidConfigIsReturnedUnchanged(t *testing.T) {
	cfg := validConfig()
	got, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, *got)
}

func TestNew_OneTimePlanWithInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Products[1].Plans[0].Interval = IntervalMonth

	_, err := New(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, hasViolation(verr.Violations, "One-time plans must not have an interval", "paymentType", "interval"), verr.Violations)
	assert.Equal(t, []string{"products", "1", "plans", "0", "paymentType", "interval"}, verr.Violations[0].Path)
}

func TestValidate_PlanRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		message string
		suffix  []string
	}{
		{
			name:    "recurring without interval",
			mutate:  func(cfg *Config) { cfg.Products[0].Plans[0].Interval = "" },
			message: "Recurring plans must have an interval",
			suffix:  []string{"plans", "0", "interval"},
		},
		{
			name: "one-time with per seat item",
			mutate: func(cfg *Config) {
				cfg.Products[1].Plans[0].LineItems[0].Type = LineItemPerSeat
			},
			message: "One-time plans must only have flat line items",
			suffix:  []string{"paymentType", "lineItems"},
		},
		{
			name: "custom plan with line items",
			mutate: func(cfg *Config) {
				cfg.Products[0].Plans[0].Custom = true
			},
			message: "Custom plans must not have line items",
			suffix:  []string{"plans", "0", "lineItems"},
		},
		{
			name: "plan without line items",
			mutate: func(cfg *Config) {
				cfg.Products[0].Plans[0].LineItems = nil
			},
			message: "Non-custom plans must have at least one line item",
			suffix:  []string{"plans", "0", "lineItems"},
		},
		{
			name: "two flat line items",
			mutate: func(cfg *Config) {
				cfg.Products[0].Plans[1].LineItems[1].Type = LineItemFlat
			},
			message: "Plans can only have one flat line item",
			suffix:  []string{"plans", "1", "lineItems"},
		},
		{
			name: "two per seat line items",
			mutate: func(cfg *Config) {
				cfg.Products[0].Plans[1].LineItems[0].Type = LineItemPerSeat
			},
			message: "Plans can only have one per-seat line item",
			suffix:  []string{"plans", "1", "lineItems"},
		},
		{
			name: "duplicate plan ids",
			mutate: func(cfg *Config) {
				cfg.Products[0].Plans[1].ID = "starter-monthly"
			},
			message: "Plan IDs must be unique: starter-monthly",
			suffix:  []string{"products", "0", "plans"},
		},
		{
			name: "duplicate line item ids across products",
			mutate: func(cfg *Config) {
				cfg.Products[1].Plans[0].LineItems[0].ID = "price_starter_monthly"
			},
			message: "Line item IDs must be unique: price_starter_monthly",
			suffix:  []string{"products"},
		},
		{
			name: "setup fee outside lemon squeezy",
			mutate: func(cfg *Config) {
				fee := decimal.NewFromInt(10)
				cfg.Products[0].Plans[0].LineItems[0].SetupFee = &fee
			},
			message: "Setup fees are only supported by Lemon Squeezy",
			suffix:  []string{"lineItems", "0", "setupFee"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			violations := Validate(cfg)
			assert.True(t, hasViolation(violations, tt.message, tt.suffix...), "violations: %v", violations)
		})
	}
}

func TestValidate_MeteredLineItem(t *testing.T) {
	cfg := validConfig()
	cfg.Products[0].Plans[0].LineItems = append(cfg.Products[0].Plans[0].LineItems, LineItem{
		ID:   "price_api_calls",
		Name: "API calls",
		Cost: decimal.NewFromInt(1),
		Type: LineItemMetered,
	})

	violations := Validate(cfg)
	assert.True(t, hasViolation(violations, "Metered line items must have a unit", "lineItems", "1", "unit"))
	assert.True(t, hasViolation(violations, "Metered line items must have tiers", "lineItems", "1", "tiers"))
	assert.True(t, hasViolation(violations, "Metered line items must have a cost of 0, use tiers instead", "lineItems", "1", "cost"))

	cfg.Products[0].Plans[0].LineItems[1].Cost = decimal.Zero
	cfg.Products[0].Plans[0].LineItems[1].Unit = "calls"
	cfg.Products[0].Plans[0].LineItems[1].Tiers = []Tier{
		{Cost: decimal.Zero, UpTo: UpTo(1000)},
		{Cost: decimal.NewFromFloat(0.01), UpTo: Unlimited()},
	}
	assert.Empty(t, Validate(cfg))
}

func TestValidate_LemonSqueezySingleLineItem(t *testing.T) {
	cfg := validConfig()
	cfg.Provider = ProviderLemonSqueezy

	violations := Validate(cfg)
	assert.True(t, hasViolation(violations, "Lemon Squeezy only supports one line item per plan", "plans", "1", "lineItems"))

	cfg.Products[0].Plans[1].LineItems = cfg.Products[0].Plans[1].LineItems[:1]
	fee := decimal.NewFromInt(25)
	cfg.Products[0].Plans[1].LineItems[0].SetupFee = &fee
	assert.Empty(t, Validate(cfg))
}

func TestValidate_StructuralErrorsUseJSONPaths(t *testing.T) {
	cfg := validConfig()
	cfg.Products[0].Currency = "US"
	cfg.Products[0].Plans[0].ID = ""

	violations := Validate(cfg)
	assert.True(t, hasViolation(violations, "must be exactly 3 characters", "products", "0", "currency"), violations)
	assert.True(t, hasViolation(violations, "is required", "products", "0", "plans", "0", "id"), violations)
}

func TestValidate_EmptyCatalog(t *testing.T) {
	violations := Validate(Config{Provider: ProviderStripe})
	require.NotEmpty(t, violations)
	assert.Equal(t, []string{"products"}, violations[0].Path)
}

func TestParse_TierLimitJSON(t *testing.T) {
	raw := []byte(`{
		"provider": "stripe",
		"products": [{
			"id": "usage", "name": "Usage", "currency": "EUR", "features": [],
			"plans": [{
				"id": "usage-monthly", "name": "Usage", "interval": "month", "paymentType": "recurring",
				"lineItems": [{
					"id": "price_usage", "name": "Requests", "cost": 0, "type": "metered", "unit": "requests",
					"tiers": [{"cost": 0, "upTo": 10}, {"cost": "0.5", "upTo": "unlimited"}]
				}]
			}]
		}]
	}`)

	cfg, err := Parse(raw)
	require.NoError(t, err)
	tiers := cfg.Products[0].Plans[0].LineItems[0].Tiers
	require.Len(t, tiers, 2)
	assert.Equal(t, UpTo(10), tiers[0].UpTo)
	assert.True(t, tiers[1].UpTo.Unlimited)

	out, err := json.Marshal(tiers[1].UpTo)
	require.NoError(t, err)
	assert.JSONEq(t, `"unlimited"`, string(out))

	var bad TierLimit
	assert.Error(t, json.Unmarshal([]byte(`"forever"`), &bad))
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Lemon-Squeezy ")
	require.NoError(t, err)
	assert.Equal(t, ProviderLemonSqueezy, p)

	_, err = ParseProvider("braintree")
	assert.Error(t, err)
}

func TestLineItem_UnitAmount(t *testing.T) {
	assert.Equal(t, int64(999), LineItem{Cost: decimal.NewFromFloat(9.99)}.UnitAmount())
	assert.Equal(t, int64(29900), LineItem{Cost: decimal.NewFromInt(299)}.UnitAmount())
}

func TestConfig_PrimaryLineItem(t *testing.T) {
	seats := LineItem{ID: "price_seats", Name: "Seats", Cost: decimal.NewFromInt(5), Type: LineItemPerSeat}
	flat := LineItem{ID: "price_base", Name: "Base", Cost: decimal.NewFromInt(10), Type: LineItemFlat}
	metered := LineItem{ID: "price_calls", Name: "API calls", Type: LineItemMetered}

	tests := []struct {
		name     string
		provider Provider
		items    []LineItem
		want     string
	}{
		{name: "flat preferred over an earlier per-seat item", provider: ProviderStripe, items: []LineItem{seats, flat}, want: "price_base"},
		{name: "first item without a flat one", provider: ProviderStripe, items: []LineItem{seats, metered}, want: "price_seats"},
		{name: "lemon squeezy takes the first item", provider: ProviderLemonSqueezy, items: []LineItem{seats, flat}, want: "price_seats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Provider: tt.provider,
				Products: []Product{{
					ID: "team", Name: "Team", Currency: "USD",
					Plans: []Plan{{ID: "team-monthly", Name: "Team Monthly", Interval: IntervalMonth, PaymentType: PaymentTypeRecurring, LineItems: tt.items}},
				}},
			}
			item, err := cfg.PrimaryLineItem("team-monthly")
			require.NoError(t, err)
			assert.Equal(t, tt.want, item.ID)
		})
	}
}

func TestConfig_PrimaryLineItemUnknownPlan(t *testing.T) {
	cfg := validConfig()
	_, err := cfg.PrimaryLineItem("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

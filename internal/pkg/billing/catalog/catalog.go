// Package catalog holds the static billing catalog (products, plans and line
// items) and the validators that guard it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Provider string

const (
	ProviderStripe       Provider = "stripe"
	ProviderLemonSqueezy Provider = "lemon-squeezy"
	ProviderPaddle       Provider = "paddle"
)

// Providers returns every provider the catalog schema accepts.
func Providers() []Provider {
	return []Provider{ProviderStripe, ProviderLemonSqueezy, ProviderPaddle}
}

// ParseProvider normalizes s and rejects unknown providers.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(Providers(), p) {
		return "", fmt.Errorf("unknown billing provider %q", s)
	}
	return p, nil
}

type PaymentType string

const (
	PaymentTypeOneTime   PaymentType = "one-time"
	PaymentTypeRecurring PaymentType = "recurring"
)

type LineItemType string

const (
	LineItemFlat    LineItemType = "flat"
	LineItemPerSeat LineItemType = "per_seat"
	LineItemMetered LineItemType = "metered"
)

type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// ErrNotFound is returned by the lookup helpers when no entry matches.
var ErrNotFound = errors.New("catalog: not found")

// Config is the full billing catalog for one provider.
type Config struct {
	Provider Provider  `json:"provider" validate:"required,oneof=stripe lemon-squeezy paddle"`
	Products []Product `json:"products" validate:"min=1,dive"`
}

type Product struct {
	ID                  string   `json:"id" validate:"required"`
	Name                string   `json:"name" validate:"required"`
	Description         string   `json:"description"`
	Currency            string   `json:"currency" validate:"required,len=3"`
	Badge               string   `json:"badge,omitempty"`
	Features            []string `json:"features"`
	EnableDiscountField bool     `json:"enableDiscountField,omitempty"`
	Highlighted         bool     `json:"highlighted,omitempty"`
	Hidden              bool     `json:"hidden,omitempty"`
	Plans               []Plan   `json:"plans" validate:"min=1,dive"`
}

type Plan struct {
	ID          string      `json:"id" validate:"required"`
	Name        string      `json:"name" validate:"required"`
	Interval    Interval    `json:"interval,omitempty" validate:"omitempty,oneof=month year"`
	PaymentType PaymentType `json:"paymentType" validate:"required,oneof=one-time recurring"`
	Custom      bool        `json:"custom,omitempty"`
	Label       string      `json:"label,omitempty"`
	ButtonLabel string      `json:"buttonLabel,omitempty"`
	Href        string      `json:"href,omitempty"`
	LineItems   []LineItem  `json:"lineItems" validate:"dive"`
	TrialDays   int         `json:"trialDays,omitempty" validate:"omitempty,min=1"`
}

// LineItem is a billable component of a plan. Its ID is the provider's
// price (Stripe) or variant (Lemon Squeezy) identifier.
type LineItem struct {
	ID          string           `json:"id" validate:"required"`
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description,omitempty"`
	Cost        decimal.Decimal  `json:"cost"`
	Type        LineItemType     `json:"type" validate:"required,oneof=flat per_seat metered"`
	Unit        string           `json:"unit,omitempty"`
	SetupFee    *decimal.Decimal `json:"setupFee,omitempty"`
	Tiers       []Tier           `json:"tiers,omitempty" validate:"dive"`
}

// UnitAmount returns the cost in minor currency units.
func (li LineItem) UnitAmount() int64 {
	return li.Cost.Shift(2).Round(0).IntPart()
}

type Tier struct {
	Cost decimal.Decimal `json:"cost"`
	UpTo TierLimit       `json:"upTo"`
}

// TierLimit is either a positive quantity or "unlimited".
type TierLimit struct {
	Unlimited bool
	Value     int64
}

func Unlimited() TierLimit {
	return TierLimit{Unlimited: true}
}

func UpTo(n int64) TierLimit {
	return TierLimit{Value: n}
}

func (l TierLimit) MarshalJSON() ([]byte, error) {
	if l.Unlimited {
		return []byte(`"unlimited"`), nil
	}
	return json.Marshal(l.Value)
}

func (l *TierLimit) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "unlimited" {
			return fmt.Errorf("invalid tier limit %q", s)
		}
		*l = Unlimited()
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid tier limit: %w", err)
	}
	*l = UpTo(n)
	return nil
}

// New validates cfg and returns it unchanged, or a *ValidationError listing
// every violation found.
func New(cfg Config) (*Config, error) {
	if violations := Validate(cfg); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return &cfg, nil
}

// MustNew is New for startup wiring; an invalid catalog is fatal.
func MustNew(cfg Config) *Config {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a JSON catalog and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode billing catalog: %w", err)
	}
	return New(cfg)
}

package models

import "time"

const (
	BillingIntervalMonth = "month"
	BillingIntervalYear  = "year"
)

const (
	BillingStatusActive            = "active"
	BillingStatusTrialing          = "trialing"
	BillingStatusPastDue           = "past_due"
	BillingStatusCanceled          = "canceled"
	BillingStatusUnpaid            = "unpaid"
	BillingStatusIncomplete        = "incomplete"
	BillingStatusIncompleteExpired = "incomplete_expired"
	BillingStatusExpired           = "expired"
	BillingStatusPaused            = "paused"
)

// BillingSubscription mirrors a provider subscription. Rows are only written
// by webhook processing and are keyed by provider + provider subscription id.
type BillingSubscription struct {
	ID                     uint                      `gorm:"primaryKey" json:"id"`
	AccountID              string                    `gorm:"type:char(36);not null;index" json:"account_id"`
	BillingCustomerID      uint                      `gorm:"not null;index" json:"billing_customer_id"`
	Provider               string                    `gorm:"type:varchar(20);not null;index:idx_billing_subscriptions_provider_status,priority:1;index:ux_billing_subscriptions_provider_subid,unique,priority:1" json:"provider"`
	ProviderSubscriptionID string                    `gorm:"type:varchar(191);not null;index:ux_billing_subscriptions_provider_subid,unique,priority:2" json:"provider_subscription_id"`
	Status                 string                    `gorm:"type:varchar(32);not null;default:'active';index:idx_billing_subscriptions_provider_status,priority:2" json:"status"`
	Active                 bool                      `gorm:"not null;default:false" json:"active"`
	Currency               string                    `gorm:"type:varchar(3);not null" json:"currency"`
	CancelAtPeriodEnd      bool                      `gorm:"default:false" json:"cancel_at_period_end"`
	PeriodStartsAt         *time.Time                `gorm:"type:timestamp;default:null" json:"period_starts_at,omitempty"`
	PeriodEndsAt           *time.Time                `gorm:"type:timestamp;default:null" json:"period_ends_at,omitempty"`
	TrialStartsAt          *time.Time                `gorm:"type:timestamp;default:null" json:"trial_starts_at,omitempty"`
	TrialEndsAt            *time.Time                `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	Items                  []BillingSubscriptionItem `gorm:"foreignKey:SubscriptionID" json:"items,omitempty"`
	CreatedAt              time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

// BillingSubscriptionItem is one priced component of a subscription.
type BillingSubscriptionItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID uint      `gorm:"not null;index" json:"subscription_id"`
	ProviderItemID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_item_id"`
	ProductID      string    `gorm:"type:varchar(191);not null" json:"product_id"`
	VariantID      string    `gorm:"type:varchar(191);not null" json:"variant_id"`
	Type           string    `gorm:"type:varchar(20);not null" json:"type"`
	Quantity       int64     `gorm:"not null;default:1" json:"quantity"`
	PriceAmount    int64     `gorm:"not null;default:0" json:"price_amount"`
	Interval       string    `gorm:"type:varchar(16);default:''" json:"interval"`
	IntervalCount  int64     `gorm:"not null;default:1" json:"interval_count"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

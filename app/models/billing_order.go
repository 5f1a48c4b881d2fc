package models

import "time"

const (
	OrderStatusPending   = "pending"
	OrderStatusSucceeded = "succeeded"
	OrderStatusFailed    = "failed"
)

// BillingOrder is a one-time purchase keyed by provider + provider order id.
type BillingOrder struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	AccountID         string             `gorm:"type:char(36);not null;index" json:"account_id"`
	BillingCustomerID uint               `gorm:"not null;index" json:"billing_customer_id"`
	Provider          string             `gorm:"type:varchar(20);not null;index:ux_billing_orders_provider_order,unique,priority:1" json:"provider"`
	ProviderOrderID   string             `gorm:"type:varchar(191);not null;index:ux_billing_orders_provider_order,unique,priority:2" json:"provider_order_id"`
	Status            string             `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount       int64              `gorm:"not null;default:0" json:"total_amount"`
	Currency          string             `gorm:"type:varchar(3);not null" json:"currency"`
	Items             []BillingOrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillingOrderItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        uint      `gorm:"not null;index" json:"order_id"`
	ProviderItemID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_item_id"`
	ProductID      string    `gorm:"type:varchar(191);not null" json:"product_id"`
	VariantID      string    `gorm:"type:varchar(191);not null" json:"variant_id"`
	Quantity       int64     `gorm:"not null;default:1" json:"quantity"`
	PriceAmount    int64     `gorm:"not null;default:0" json:"price_amount"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

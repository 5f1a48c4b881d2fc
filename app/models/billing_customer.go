package models

import "time"

// BillingCustomer stores the provider customer that pays for an account.
type BillingCustomer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AccountID  string    `gorm:"type:char(36);not null;index:ux_billing_customers_account_provider,unique,priority:1" json:"account_id"`
	Provider   string    `gorm:"type:varchar(20);not null;index:ux_billing_customers_account_provider,unique,priority:2;index:ux_billing_customers_provider_customer,unique,priority:1" json:"provider"`
	CustomerID string    `gorm:"type:varchar(191);not null;index:ux_billing_customers_provider_customer,unique,priority:2" json:"customer_id"`
	Email      string    `gorm:"type:varchar(320);default:''" json:"email"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

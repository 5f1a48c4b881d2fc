package lemonsqueezy

import (
	"strconv"
	"time"
)

type subscriptionAttributes struct {
	StoreID               int64             `json:"store_id"`
	CustomerID            int64             `json:"customer_id"`
	OrderID               int64             `json:"order_id"`
	ProductID             int64             `json:"product_id"`
	VariantID             int64             `json:"variant_id"`
	UserEmail             string            `json:"user_email"`
	Status                string            `json:"status"`
	Cancelled             bool              `json:"cancelled"`
	TrialEndsAt           *time.Time        `json:"trial_ends_at"`
	RenewsAt              *time.Time        `json:"renews_at"`
	EndsAt                *time.Time        `json:"ends_at"`
	CreatedAt             time.Time         `json:"created_at"`
	FirstSubscriptionItem *subscriptionItem `json:"first_subscription_item"`
}

type subscriptionItem struct {
	ID             int64 `json:"id"`
	SubscriptionID int64 `json:"subscription_id"`
	PriceID        int64 `json:"price_id"`
	Quantity       int64 `json:"quantity"`
	IsUsageBased   bool  `json:"is_usage_based"`
}

type orderAttributes struct {
	StoreID        int64      `json:"store_id"`
	CustomerID     int64      `json:"customer_id"`
	Identifier     string     `json:"identifier"`
	OrderNumber    int64      `json:"order_number"`
	UserEmail      string     `json:"user_email"`
	Currency       string     `json:"currency"`
	Total          int64      `json:"total"`
	Status         string     `json:"status"`
	FirstOrderItem *orderItem `json:"first_order_item"`
}

type orderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id"`
	Price     int64 `json:"price"`
	Quantity  int64 `json:"quantity"`
}

type subscriptionInvoiceAttributes struct {
	SubscriptionID int64  `json:"subscription_id"`
	CustomerID     int64  `json:"customer_id"`
	Status         string `json:"status"`
}

type variantAttributes struct {
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	Price          int64  `json:"price"`
	IsSubscription bool   `json:"is_subscription"`
	Interval       string `json:"interval"`
	IntervalCount  int64  `json:"interval_count"`
}

type customerAttributes struct {
	Email string `json:"email"`
	URLs  struct {
		CustomerPortal string `json:"customer_portal"`
	} `json:"urls"`
}

type checkoutAttributes struct {
	URL          string     `json:"url"`
	ExpiresAt    *time.Time `json:"expires_at"`
	CheckoutData struct {
		Email string `json:"email"`
	} `json:"checkout_data"`
}

type usageRecordAttributes struct {
	SubscriptionItemID int64     `json:"subscription_item_id"`
	Quantity           int64     `json:"quantity"`
	Action             string    `json:"action"`
	CreatedAt          time.Time `json:"created_at"`
}

type pageMeta struct {
	Page struct {
		CurrentPage int `json:"currentPage"`
		LastPage    int `json:"lastPage"`
	} `json:"page"`
}

type currentUsageMeta struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Quantity    int64     `json:"quantity"`
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

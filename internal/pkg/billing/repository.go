package billing

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/FoxKit/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service. Every write
// is an upsert or delete keyed by provider identifiers so replays converge.
type Repository interface {
	UpsertCustomer(ctx context.Context, customer *models.BillingCustomer) error
	GetCustomerByAccount(ctx context.Context, accountID, provider string) (*models.BillingCustomer, error)
	GetSubscription(ctx context.Context, provider, providerSubscriptionID string) (*models.BillingSubscription, error)
	ListSubscriptionsByAccount(ctx context.Context, accountID string) ([]models.BillingSubscription, error)
	UpsertSubscription(ctx context.Context, customer *models.BillingCustomer, sub *models.BillingSubscription) error
	DeleteSubscription(ctx context.Context, provider, providerSubscriptionID string) error
	UpsertOrder(ctx context.Context, customer *models.BillingCustomer, order *models.BillingOrder) error
	UpdateOrderStatus(ctx context.Context, provider, providerOrderID, status string) error
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) UpsertCustomer(ctx context.Context, customer *models.BillingCustomer) error {
	return upsertCustomer(r.db.WithContext(ctx), customer)
}

func upsertCustomer(tx *gorm.DB, customer *models.BillingCustomer) error {
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "customer_id"},
		},
		// The account/provider key can match instead, so the customer id is
		// updated too or the lookup below misses the row.
		DoUpdates: clause.AssignmentColumns([]string{
			"account_id",
			"customer_id",
			"email",
			"updated_at",
		}),
	}).Create(customer).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return tx.Where("provider = ? AND customer_id = ?", customer.Provider, customer.CustomerID).
		First(customer).Error
}

func (r *gormRepository) GetCustomerByAccount(ctx context.Context, accountID, provider string) (*models.BillingCustomer, error) {
	var customer models.BillingCustomer
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND provider = ?", accountID, provider).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *gormRepository) GetSubscription(ctx context.Context, provider, providerSubscriptionID string) (*models.BillingSubscription, error) {
	var sub models.BillingSubscription
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListSubscriptionsByAccount(ctx context.Context, accountID string) ([]models.BillingSubscription, error) {
	var subs []models.BillingSubscription
	err := r.db.WithContext(ctx).Preload("Items").Where("account_id = ?", accountID).Find(&subs).Error
	return subs, err
}

// UpsertSubscription writes customer, subscription and items in one
// transaction and removes items the provider no longer reports.
func (r *gormRepository) UpsertSubscription(ctx context.Context, customer *models.BillingCustomer, sub *models.BillingSubscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertCustomer(tx, customer); err != nil {
			return err
		}
		sub.BillingCustomerID = customer.ID
		items := sub.Items

		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider"},
				{Name: "provider_subscription_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_id",
				"billing_customer_id",
				"status",
				"active",
				"currency",
				"cancel_at_period_end",
				"period_starts_at",
				"period_ends_at",
				"trial_starts_at",
				"trial_ends_at",
				"updated_at",
			}),
		}).Create(sub).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).
			Where("provider = ? AND provider_subscription_id = ?", sub.Provider, sub.ProviderSubscriptionID).
			First(sub).Error; err != nil {
			return err
		}

		keep := make([]string, 0, len(items))
		for i := range items {
			items[i].SubscriptionID = sub.ID
			keep = append(keep, items[i].ProviderItemID)
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "provider_item_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"subscription_id",
					"product_id",
					"variant_id",
					"type",
					"quantity",
					"price_amount",
					"interval",
					"interval_count",
					"updated_at",
				}),
			}).Create(&items[i]).Error; err != nil {
				return err
			}
		}

		stale := tx.Where("subscription_id = ?", sub.ID)
		if len(keep) > 0 {
			stale = stale.Where("provider_item_id NOT IN ?", keep)
		}
		if err := stale.Delete(&models.BillingSubscriptionItem{}).Error; err != nil {
			return err
		}
		sub.Items = items
		return nil
	})
}

// DeleteSubscription removes a subscription and its items. Deleting an
// unknown subscription is not an error.
func (r *gormRepository) DeleteSubscription(ctx context.Context, provider, providerSubscriptionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.BillingSubscription
		err := tx.Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("subscription_id = ?", sub.ID).Delete(&models.BillingSubscriptionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

func (r *gormRepository) UpsertOrder(ctx context.Context, customer *models.BillingCustomer, order *models.BillingOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertCustomer(tx, customer); err != nil {
			return err
		}
		order.BillingCustomerID = customer.ID
		items := order.Items

		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider"},
				{Name: "provider_order_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_id",
				"billing_customer_id",
				"status",
				"total_amount",
				"currency",
				"updated_at",
			}),
		}).Create(order).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).
			Where("provider = ? AND provider_order_id = ?", order.Provider, order.ProviderOrderID).
			First(order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "provider_item_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"order_id",
					"product_id",
					"variant_id",
					"quantity",
					"price_amount",
					"updated_at",
				}),
			}).Create(&items[i]).Error; err != nil {
				return err
			}
		}
		order.Items = items
		return nil
	})
}

func (r *gormRepository) UpdateOrderStatus(ctx context.Context, provider, providerOrderID, status string) error {
	return r.db.WithContext(ctx).Model(&models.BillingOrder{}).
		Where("provider = ? AND provider_order_id = ?", provider, providerOrderID).
		Update("status", status).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

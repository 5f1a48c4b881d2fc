package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/FoxKit/app/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service persists the canonical billing state derived from webhooks.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Persist applies the single storage step that belongs to a canonical event.
// Events of kind EventOther are not stored.
func (s *Service) Persist(ctx context.Context, event *Event) error {
	switch event.Kind {
	case EventCheckoutCompleted:
		switch {
		case event.Subscription != nil:
			_, err := s.UpsertSubscription(ctx, *event.Subscription)
			return err
		case event.Order != nil:
			_, err := s.UpsertOrder(ctx, *event.Order)
			return err
		default:
			return errors.New("checkout event carries neither subscription nor order")
		}
	case EventSubscriptionUpdated, EventInvoicePaid:
		if event.Subscription == nil {
			return fmt.Errorf("%s event without subscription", event.Kind)
		}
		_, err := s.UpsertSubscription(ctx, *event.Subscription)
		return err
	case EventSubscriptionDeleted:
		return s.DeleteSubscription(ctx, event.Provider, event.SubscriptionID)
	case EventPaymentSucceeded:
		return s.UpdateOrderStatus(ctx, event.Provider, event.SessionID, OrderSucceeded)
	case EventPaymentFailed:
		return s.UpdateOrderStatus(ctx, event.Provider, event.SessionID, OrderFailed)
	case EventOther:
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
}

// UpsertSubscription creates or updates the local copy of a provider
// subscription. Updates may omit the account; it is then taken from the
// existing row.
func (s *Service) UpsertSubscription(ctx context.Context, in SubscriptionParams) (*models.BillingSubscription, error) {
	provider := string(in.Provider)
	subID := strings.TrimSpace(in.SubscriptionID)
	if provider == "" || subID == "" || strings.TrimSpace(in.CustomerID) == "" {
		return nil, errors.New("provider, subscription_id and customer_id are required")
	}

	accountID := strings.TrimSpace(in.AccountID)
	if accountID == "" {
		existing, err := s.repo.GetSubscription(ctx, provider, subID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscription %s has no account reference", subID)
		}
		if err != nil {
			return nil, err
		}
		accountID = existing.AccountID
	}

	status := NormalizeStatus(in.Status)
	sub := &models.BillingSubscription{
		AccountID:              accountID,
		Provider:               provider,
		ProviderSubscriptionID: subID,
		Status:                 status,
		Active:                 in.Active,
		Currency:               strings.ToLower(in.Currency),
		CancelAtPeriodEnd:      in.CancelAtPeriodEnd,
		PeriodStartsAt:         timePtr(in.PeriodStartsAt),
		PeriodEndsAt:           timePtr(in.PeriodEndsAt),
		TrialStartsAt:          in.TrialStartsAt,
		TrialEndsAt:            in.TrialEndsAt,
	}
	for _, li := range in.LineItems {
		sub.Items = append(sub.Items, models.BillingSubscriptionItem{
			ProviderItemID: li.ID,
			ProductID:      li.ProductID,
			VariantID:      li.VariantID,
			Type:           string(li.Type),
			Quantity:       li.Quantity,
			PriceAmount:    li.PriceAmount,
			Interval:       li.Interval,
			IntervalCount:  li.IntervalCount,
		})
	}

	customer := &models.BillingCustomer{
		AccountID:  accountID,
		Provider:   provider,
		CustomerID: strings.TrimSpace(in.CustomerID),
	}
	if err := s.repo.UpsertSubscription(ctx, customer, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubscription removes the local copy of a provider subscription.
func (s *Service) DeleteSubscription(ctx context.Context, provider Provider, subscriptionID string) error {
	if provider == "" || strings.TrimSpace(subscriptionID) == "" {
		return errors.New("provider and subscription_id are required")
	}
	return s.repo.DeleteSubscription(ctx, string(provider), strings.TrimSpace(subscriptionID))
}

// UpsertOrder creates or updates a one-time order.
func (s *Service) UpsertOrder(ctx context.Context, in OrderParams) (*models.BillingOrder, error) {
	provider := string(in.Provider)
	orderID := strings.TrimSpace(in.OrderID)
	if provider == "" || orderID == "" || strings.TrimSpace(in.AccountID) == "" || strings.TrimSpace(in.CustomerID) == "" {
		return nil, errors.New("provider, order_id, account_id and customer_id are required")
	}
	status := in.Status
	if status == "" {
		status = OrderPending
	}

	order := &models.BillingOrder{
		AccountID:       in.AccountID,
		Provider:        provider,
		ProviderOrderID: orderID,
		Status:          string(status),
		TotalAmount:     in.TotalAmount,
		Currency:        strings.ToLower(in.Currency),
	}
	for _, li := range in.LineItems {
		order.Items = append(order.Items, models.BillingOrderItem{
			ProviderItemID: li.ID,
			ProductID:      li.ProductID,
			VariantID:      li.VariantID,
			Quantity:       li.Quantity,
			PriceAmount:    li.PriceAmount,
		})
	}
	customer := &models.BillingCustomer{
		AccountID:  in.AccountID,
		Provider:   provider,
		CustomerID: strings.TrimSpace(in.CustomerID),
	}
	if err := s.repo.UpsertOrder(ctx, customer, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus flips the status of an existing order.
func (s *Service) UpdateOrderStatus(ctx context.Context, provider Provider, orderID string, status OrderStatus) error {
	if provider == "" || strings.TrimSpace(orderID) == "" {
		return errors.New("provider and order_id are required")
	}
	return s.repo.UpdateOrderStatus(ctx, string(provider), strings.TrimSpace(orderID), string(status))
}

// CustomerID returns the provider customer of an account, or "" if the
// account never completed a checkout with that provider.
func (s *Service) CustomerID(ctx context.Context, accountID string, provider Provider) (string, error) {
	c, err := s.repo.GetCustomerByAccount(ctx, accountID, string(provider))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.CustomerID, nil
}

// AccountSubscriptions lists the subscriptions of an account with items.
func (s *Service) AccountSubscriptions(ctx context.Context, accountID string) ([]models.BillingSubscription, error) {
	return s.repo.ListSubscriptionsByAccount(ctx, accountID)
}

// WebhookEventInput describes a verified delivery for the event log.
type WebhookEventInput struct {
	Provider        Provider
	ProviderEventID string
	EventType       string
	Payload         []byte
}

// RecordWebhookEvent persists webhook payloads idempotently. Deliveries
// without an event id are keyed by the payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	if in.Provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256(in.Payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        string(in.Provider),
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		Payload:         datatypes.JSON(in.Payload),
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

package accountbilling

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// SeatService keeps per-seat subscription quantities equal to team size.
type SeatService struct {
	Deps
}

func NewSeatService(deps Deps) *SeatService {
	return &SeatService{Deps: deps}
}

// SyncSeats updates every per-seat item of the account's active
// subscriptions at the provider. Personal accounts are skipped.
func (s *SeatService) SyncSeats(ctx context.Context, accountID string) error {
	account, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", accountID, err)
	}
	if account.IsPersonalAccount {
		return nil
	}

	subscriptions, err := s.Store.AccountSubscriptions(ctx, accountID)
	if err != nil {
		return err
	}
	members, err := s.Accounts.CountMembers(ctx, accountID)
	if err != nil {
		return err
	}
	quantity := max(members, 1)

	var errs []error
	for _, sub := range subscriptions {
		if !sub.Active {
			continue
		}
		var gateway *billing.Gateway
		for _, item := range sub.Items {
			if item.Type != string(catalog.LineItemPerSeat) || item.Quantity == quantity {
				continue
			}
			if gateway == nil {
				gateway, err = s.Gateways.ForProvider(billing.Provider(sub.Provider))
				if err != nil {
					errs = append(errs, err)
					break
				}
			}

			fiberlog.Infof("[Billing] Syncing seats of subscription %s: %d -> %d", sub.ProviderSubscriptionID, item.Quantity, quantity)
			_, err := gateway.UpdateSubscriptionItem(ctx, billing.UpdateSubscriptionItemParams{
				SubscriptionID:     sub.ProviderSubscriptionID,
				SubscriptionItemID: item.ProviderItemID,
				Quantity:           quantity,
			})
			if err != nil {
				fiberlog.Errorf("[Billing] Seat sync for item %s failed: %v", item.ProviderItemID, err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

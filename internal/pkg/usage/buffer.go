// Package usage buffers metered usage per account in redis and reports it to
// the billing provider in batches.
package usage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
)

const pendingUsageKey = "billing:usage:pending"

// ErrNoMeteredTarget means the account has nothing to report usage against.
var ErrNoMeteredTarget = errors.New("usage: account has no metered subscription")

// Store reads the billing state needed to address usage at the provider.
type Store interface {
	CustomerID(ctx context.Context, accountID string, provider billing.Provider) (string, error)
	AccountSubscriptions(ctx context.Context, accountID string) ([]models.BillingSubscription, error)
}

// GatewayResolver returns the gateway of the active provider.
type GatewayResolver interface {
	Resolve(ctx context.Context) (*billing.Gateway, error)
}

type Buffer struct {
	rdb       *redis.Client
	store     Store
	gateways  GatewayResolver
	eventName string
}

// NewBuffer creates a usage buffer. eventName is the Stripe meter event name
// and is ignored by providers that report against subscription items.
func NewBuffer(rdb *redis.Client, store Store, gateways GatewayResolver, eventName string) *Buffer {
	return &Buffer{rdb: rdb, store: store, gateways: gateways, eventName: eventName}
}

// Add increments the pending usage of an account.
func (b *Buffer) Add(ctx context.Context, accountID string, quantity int64) error {
	if accountID == "" || quantity <= 0 {
		return fmt.Errorf("%w: usage needs an account and a positive quantity", billing.ErrValidation)
	}
	return b.rdb.HIncrBy(ctx, pendingUsageKey, accountID, quantity).Err()
}

// Pending returns the buffered, not yet reported usage of an account.
func (b *Buffer) Pending(ctx context.Context, accountID string) (int64, error) {
	n, err := b.rdb.HGet(ctx, pendingUsageKey, accountID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Flush drains the buffer and reports one usage record per account. Entries
// that fail to report are put back so the next flush retries them.
func (b *Buffer) Flush(ctx context.Context) (int, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", pendingUsageKey, time.Now().UnixNano())
	if err := b.rdb.Rename(ctx, pendingUsageKey, tmpKey).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return 0, nil
		}
		return 0, err
	}
	defer b.rdb.Del(ctx, tmpKey)

	data, err := b.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	gateway, err := b.gateways.Resolve(ctx)
	if err != nil {
		b.requeue(ctx, data)
		return 0, err
	}

	accounts := make([]string, 0, len(data))
	for accountID := range data {
		accounts = append(accounts, accountID)
	}
	sort.Strings(accounts)

	reported := 0
	var errs []error
	for _, accountID := range accounts {
		quantity, perr := strconv.ParseInt(data[accountID], 10, 64)
		if perr != nil || quantity <= 0 {
			continue
		}
		if err := b.report(ctx, gateway, accountID, quantity); err != nil {
			if errors.Is(err, ErrNoMeteredTarget) {
				fiberlog.Warnf("[Usage] Dropping %d units for account %s: %v", quantity, accountID, err)
				continue
			}
			fiberlog.Errorf("[Usage] Reporting usage for account %s failed: %v", accountID, err)
			b.requeue(ctx, map[string]string{accountID: data[accountID]})
			errs = append(errs, err)
			continue
		}
		reported++
	}
	return reported, errors.Join(errs...)
}

func (b *Buffer) report(ctx context.Context, gateway *billing.Gateway, accountID string, quantity int64) error {
	id, err := b.target(ctx, gateway.Provider(), accountID)
	if err != nil {
		return err
	}
	params := billing.ReportUsageParams{ID: id, Quantity: quantity, Action: billing.UsageIncrement}
	if gateway.Provider() == catalog.ProviderStripe {
		params.EventName = b.eventName
	}
	_, err = gateway.ReportUsage(ctx, params)
	return err
}

// target is the provider id usage is reported against: the customer for
// Stripe meters, the metered subscription item otherwise.
func (b *Buffer) target(ctx context.Context, provider billing.Provider, accountID string) (string, error) {
	if provider == catalog.ProviderStripe {
		customerID, err := b.store.CustomerID(ctx, accountID, provider)
		if err != nil {
			return "", err
		}
		if customerID == "" {
			return "", ErrNoMeteredTarget
		}
		return customerID, nil
	}

	subs, err := b.store.AccountSubscriptions(ctx, accountID)
	if err != nil {
		return "", err
	}
	for _, sub := range subs {
		if !sub.Active || sub.Provider != string(provider) {
			continue
		}
		for _, item := range sub.Items {
			if item.Type == string(catalog.LineItemMetered) {
				return item.ProviderItemID, nil
			}
		}
	}
	return "", ErrNoMeteredTarget
}

func (b *Buffer) requeue(ctx context.Context, data map[string]string) {
	for accountID, v := range data {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		if err := b.rdb.HIncrBy(ctx, pendingUsageKey, accountID, n).Err(); err != nil {
			fiberlog.Errorf("[Usage] Requeue of %d units for account %s failed: %v", n, accountID, err)
		}
	}
}

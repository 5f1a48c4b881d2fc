// Package accountbilling runs checkout and billing portal flows for personal
// and team accounts on top of the billing gateway.
package accountbilling

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
)

var (
	ErrCheckoutNotCreated = errors.New("checkout not created")
	ErrPortalNotCreated   = errors.New("failed to create billing portal session")
)

// User is the authenticated caller.
type User struct {
	ID    uint
	Email string
}

// Accounts is the slice of the account repository the flows need.
type Accounts interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetPersonalAccount(ctx context.Context, userID uint) (*models.Account, error)
	CountMembers(ctx context.Context, accountID string) (int64, error)
	HasPermission(ctx context.Context, userID uint, accountID, permission string) (bool, error)
}

// Store reads persisted billing state.
type Store interface {
	CustomerID(ctx context.Context, accountID string, provider billing.Provider) (string, error)
	AccountSubscriptions(ctx context.Context, accountID string) ([]models.BillingSubscription, error)
}

type Deps struct {
	Accounts Accounts
	Store    Store
	Gateways *billing.GatewayFactory
	Catalog  *catalog.Config
	// AppURL is the public base url used for checkout and portal return urls.
	AppURL string
}

// publicError keeps the caller facing message generic while the vendor
// cause stays reachable through errors.Is/As.
type publicError struct {
	kind  error
	cause error
}

func (e *publicError) Error() string        { return e.kind.Error() }
func (e *publicError) Is(target error) bool { return target == e.kind }
func (e *publicError) Unwrap() error        { return e.cause }

func requireUser(user *User) error {
	if user == nil || user.ID == 0 {
		return billing.ErrAuthRequired
	}
	return nil
}

// resolvePlan finds planID and checks it belongs to productID.
func resolvePlan(cat *catalog.Config, productID, planID string) (catalog.Product, catalog.Plan, error) {
	product, plan, err := cat.ProductPlanPair(planID)
	if err != nil {
		return product, plan, fmt.Errorf("%w: %v", billing.ErrNotFound, err)
	}
	if productID != "" && product.ID != productID {
		return product, plan, fmt.Errorf("%w: plan %q is not part of product %q", billing.ErrNotFound, planID, productID)
	}
	return product, plan, nil
}

func (d Deps) link(path string) string {
	return strings.TrimRight(d.AppURL, "/") + path
}

func personalBillingPath() string {
	return "/home/billing"
}

func teamBillingPath(slug string) string {
	return "/home/" + url.PathEscape(slug) + "/billing"
}

// CheckoutReturn reads the checkout state for the return page.
func (d Deps) CheckoutReturn(ctx context.Context, sessionID string) (*billing.CheckoutSessionStatus, error) {
	gateway, err := d.Gateways.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return gateway.RetrieveCheckoutSession(ctx, billing.RetrieveCheckoutSessionParams{SessionID: sessionID})
}

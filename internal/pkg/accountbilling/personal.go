package accountbilling

import (
	"context"
	"errors"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

type PersonalCheckoutParams struct {
	PlanID    string `json:"planId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
}

// PersonalService bills the personal account of the caller.
type PersonalService struct {
	Deps
}

func NewPersonalService(deps Deps) *PersonalService {
	return &PersonalService{Deps: deps}
}

func (s *PersonalService) CreateCheckout(ctx context.Context, user *User, params PersonalCheckoutParams) (*billing.CheckoutSession, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	account, err := s.Accounts.GetPersonalAccount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	product, plan, err := resolvePlan(s.Catalog, params.ProductID, params.PlanID)
	if err != nil {
		return nil, err
	}

	gateway, err := s.Gateways.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	customerID, err := s.Store.CustomerID(ctx, account.ID, gateway.Provider())
	if err != nil {
		return nil, err
	}

	checkout := billing.CheckoutSessionParams{
		ReturnURL:           s.link(personalBillingPath() + "/return"),
		AccountID:           account.ID,
		Plan:                plan,
		CustomerID:          customerID,
		EnableDiscountField: product.EnableDiscountField,
	}
	if customerID == "" {
		checkout.CustomerEmail = user.Email
	}

	fiberlog.Infof("[Billing] Creating checkout for personal account %s (plan %s)", account.ID, plan.ID)
	session, err := gateway.CreateCheckoutSession(ctx, checkout)
	if err != nil {
		if errors.Is(err, billing.ErrValidation) {
			return nil, err
		}
		fiberlog.Errorf("[Billing] Checkout for personal account %s failed: %v", account.ID, err)
		return nil, &publicError{kind: ErrCheckoutNotCreated, cause: err}
	}
	return session, nil
}

func (s *PersonalService) CreatePortalSession(ctx context.Context, user *User) (*billing.PortalSession, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	account, err := s.Accounts.GetPersonalAccount(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	gateway, err := s.Gateways.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	customerID, err := s.Store.CustomerID(ctx, account.ID, gateway.Provider())
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return nil, billing.ErrCustomerNotFound
	}

	session, err := gateway.CreateBillingPortalSession(ctx, billing.PortalSessionParams{
		CustomerID: customerID,
		ReturnURL:  s.link(personalBillingPath()),
	})
	if err != nil {
		fiberlog.Errorf("[Billing] Portal session for personal account %s failed: %v", account.ID, err)
		return nil, &publicError{kind: ErrPortalNotCreated, cause: err}
	}
	return session, nil
}

package accountbilling

import (
	"context"
	"errors"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

type TeamCheckoutParams struct {
	AccountID string `json:"accountId" validate:"required,uuid"`
	Slug      string `json:"slug" validate:"required"`
	PlanID    string `json:"planId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
}

type TeamPortalParams struct {
	AccountID string `json:"accountId" form:"accountId" validate:"required,uuid"`
	Slug      string `json:"slug" form:"slug" validate:"required"`
}

// TeamService bills team accounts. Every call requires the billing.manage
// permission on the team.
type TeamService struct {
	Deps
}

func NewTeamService(deps Deps) *TeamService {
	return &TeamService{Deps: deps}
}

func (s *TeamService) authorize(ctx context.Context, user *User, accountID string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	ok, err := s.Accounts.HasPermission(ctx, user.ID, accountID, models.PermissionBillingManage)
	if err != nil {
		return err
	}
	if !ok {
		fiberlog.Warnf("[Billing] User %d lacks %s on account %s", user.ID, models.PermissionBillingManage, accountID)
		return billing.ErrPermissionDenied
	}
	return nil
}

func (s *TeamService) CreateCheckout(ctx context.Context, user *User, params TeamCheckoutParams) (*billing.CheckoutSession, error) {
	if err := s.authorize(ctx, user, params.AccountID); err != nil {
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
	customerID, err := s.Store.CustomerID(ctx, params.AccountID, gateway.Provider())
	if err != nil {
		return nil, err
	}
	quantities, err := s.seatQuantities(ctx, params.AccountID, plan)
	if err != nil {
		return nil, err
	}

	checkout := billing.CheckoutSessionParams{
		ReturnURL:           s.link(teamBillingPath(params.Slug) + "/return"),
		AccountID:           params.AccountID,
		Plan:                plan,
		CustomerID:          customerID,
		EnableDiscountField: product.EnableDiscountField,
		VariantQuantities:   quantities,
	}
	if customerID == "" {
		checkout.CustomerEmail = user.Email
	}

	fiberlog.Infof("[Billing] Creating checkout for team account %s (plan %s)", params.AccountID, plan.ID)
	session, err := gateway.CreateCheckoutSession(ctx, checkout)
	if err != nil {
		if errors.Is(err, billing.ErrValidation) {
			return nil, err
		}
		fiberlog.Errorf("[Billing] Checkout for team account %s failed: %v", params.AccountID, err)
		return nil, &publicError{kind: ErrCheckoutNotCreated, cause: err}
	}
	return session, nil
}

// seatQuantities sets every per-seat line item to the team's member count.
func (s *TeamService) seatQuantities(ctx context.Context, accountID string, plan catalog.Plan) ([]billing.VariantQuantity, error) {
	var quantities []billing.VariantQuantity
	var members int64
	for _, li := range plan.LineItems {
		if li.Type != catalog.LineItemPerSeat {
			continue
		}
		if members == 0 {
			n, err := s.Accounts.CountMembers(ctx, accountID)
			if err != nil {
				return nil, err
			}
			members = max(n, 1)
		}
		quantities = append(quantities, billing.VariantQuantity{VariantID: li.ID, Quantity: members})
	}
	return quantities, nil
}

func (s *TeamService) CreatePortalSession(ctx context.Context, user *User, params TeamPortalParams) (*billing.PortalSession, error) {
	if err := s.authorize(ctx, user, params.AccountID); err != nil {
		return nil, err
	}

	gateway, err := s.Gateways.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	customerID, err := s.Store.CustomerID(ctx, params.AccountID, gateway.Provider())
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return nil, billing.ErrCustomerNotFound
	}

	session, err := gateway.CreateBillingPortalSession(ctx, billing.PortalSessionParams{
		CustomerID: customerID,
		ReturnURL:  s.link(teamBillingPath(params.Slug)),
	})
	if err != nil {
		fiberlog.Errorf("[Billing] Portal session for team account %s failed: %v", params.AccountID, err)
		return nil, &publicError{kind: ErrPortalNotCreated, cause: err}
	}
	return session, nil
}

package accountbilling

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
)

// UsageRecorder buffers metered usage until it is reported to the provider.
type UsageRecorder interface {
	Add(ctx context.Context, accountID string, quantity int64) error
}

type RecordUsageParams struct {
	AccountID string `json:"accountId" validate:"required,uuid"`
	Quantity  int64  `json:"quantity" validate:"min=1"`
}

// UsageService records metered usage on behalf of signed in users.
type UsageService struct {
	Deps
	recorder UsageRecorder
}

func NewUsageService(deps Deps, recorder UsageRecorder) *UsageService {
	return &UsageService{Deps: deps, recorder: recorder}
}

// Record adds usage for an account the caller owns or holds usage.report on.
func (s *UsageService) Record(ctx context.Context, user *User, params RecordUsageParams) error {
	if err := requireUser(user); err != nil {
		return err
	}
	account, err := s.Accounts.GetByID(ctx, params.AccountID)
	if err != nil {
		return err
	}
	if account.IsPersonalAccount {
		if account.PrimaryOwnerUserID != user.ID {
			return billing.ErrPermissionDenied
		}
	} else {
		ok, err := s.Accounts.HasPermission(ctx, user.ID, account.ID, models.PermissionUsageReport)
		if err != nil {
			return err
		}
		if !ok {
			return billing.ErrPermissionDenied
		}
	}
	if params.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", billing.ErrValidation)
	}
	return s.recorder.Add(ctx, account.ID, params.Quantity)
}

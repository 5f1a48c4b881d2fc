package repository

import (
	"context"

	"github.com/ManuelReschke/FoxKit/app/models"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// GetPersonalAccount returns the personal account owned by userID.
func (r *accountRepository) GetPersonalAccount(ctx context.Context, userID uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("primary_owner_user_id = ? AND is_personal_account = ?", userID, true).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CountMembers is the seat count of a team account.
func (r *accountRepository) CountMembers(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccountMembership{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}

// HasPermission reports whether the user's role on the account grants
// permission. The primary owner always has every permission.
func (r *accountRepository) HasPermission(ctx context.Context, userID uint, accountID, permission string) (bool, error) {
	db := r.db.WithContext(ctx)

	var owners int64
	err := db.Model(&models.Account{}).
		Where("id = ? AND primary_owner_user_id = ?", accountID, userID).
		Count(&owners).Error
	if err != nil {
		return false, err
	}
	if owners > 0 {
		return true, nil
	}

	var granted int64
	err = db.Model(&models.AccountMembership{}).
		Joins("JOIN role_permissions ON role_permissions.role = accounts_memberships.account_role").
		Where("accounts_memberships.account_id = ? AND accounts_memberships.user_id = ? AND role_permissions.permission = ?", accountID, userID, permission).
		Count(&granted).Error
	if err != nil {
		return false, err
	}
	return granted > 0, nil
}

package repository

import (
	"context"

	"github.com/ManuelReschke/FoxKit/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// AccountRepository covers accounts, team memberships and role permissions.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetPersonalAccount(ctx context.Context, userID uint) (*models.Account, error)
	CountMembers(ctx context.Context, accountID string) (int64, error)
	HasPermission(ctx context.Context, userID uint, accountID, permission string) (bool, error)
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Account AccountRepository
	Setting SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Account: NewAccountRepository(db),
		Setting: NewSettingRepository(db),
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is the billable entity. Every user owns exactly one personal
// account; team accounts are shared through memberships.
type Account struct {
	ID                 string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name               string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug               string    `gorm:"type:varchar(255);uniqueIndex;default:null" json:"slug,omitempty"`
	Email              string    `gorm:"type:varchar(320);default:null" json:"email,omitempty"`
	IsPersonalAccount  bool      `gorm:"not null;default:false;index" json:"is_personal_account"`
	PrimaryOwnerUserID uint      `gorm:"not null;index" json:"primary_owner_user_id"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// AccountMembership links a user to a team account with a role.
type AccountMembership struct {
	AccountID   string    `gorm:"type:char(36);primaryKey" json:"account_id"`
	UserID      uint      `gorm:"primaryKey" json:"user_id"`
	AccountRole string    `gorm:"type:varchar(50);not null;index" json:"account_role"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AccountMembership) TableName() string {
	return "accounts_memberships"
}

// PermissionBillingManage allows starting checkouts and opening the billing
// portal for a team account.
const PermissionBillingManage = "billing.manage"

// PermissionUsageReport allows recording metered usage for a team account.
const PermissionUsageReport = "usage.report"

// RolePermission grants a permission to every member holding Role.
type RolePermission struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Role       string `gorm:"type:varchar(50);not null;index:ux_role_permissions,unique,priority:1" json:"role"`
	Permission string `gorm:"type:varchar(100);not null;index:ux_role_permissions,unique,priority:2" json:"permission"`
}

// Invitation is a pending request for an email address to join a team.
type Invitation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AccountID   string    `gorm:"type:char(36);not null;index" json:"account_id"`
	Email       string    `gorm:"type:varchar(320);not null" json:"email"`
	Role        string    `gorm:"type:varchar(50);not null" json:"role"`
	InviteToken string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"invite_token"`
	InvitedBy   uint      `gorm:"not null" json:"invited_by"`
	ExpiresAt   time.Time `gorm:"type:timestamp" json:"expires_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

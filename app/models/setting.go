package models

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	SettingSiteTitle       = "site_title"
	SettingSupportEmail    = "support_email"
	SettingBillingProvider = "billing_provider"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean, integer, float
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings represents the application settings structure
type AppSettings struct {
	SiteTitle       string `json:"site_title" validate:"required,min=1,max=255"`
	SupportEmail    string `json:"support_email" validate:"omitempty,email"`
	BillingProvider string `json:"billing_provider" validate:"required,oneof=stripe lemon-squeezy paddle"`
}

var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

// GetAppSettings returns the settings loaded by LoadSettings.
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// LoadSettings loads settings from database into memory. defaultProvider is
// used until an admin persists a billing provider.
func LoadSettings(db *gorm.DB, defaultProvider string) error {
	loaded := &AppSettings{
		SiteTitle:       "FoxKit",
		BillingProvider: defaultProvider,
	}

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range settings {
		switch setting.Key {
		case SettingSiteTitle:
			loaded.SiteTitle = setting.Value
		case SettingSupportEmail:
			loaded.SupportEmail = setting.Value
		case SettingBillingProvider:
			if setting.Value != "" {
				loaded.BillingProvider = setting.Value
			}
		}
	}

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	settingsMu.Lock()
	appSettings = loaded
	settingsMu.Unlock()
	return nil
}

// Validate validates the settings
func (s *AppSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

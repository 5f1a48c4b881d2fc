package database

import (
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FoxKit/app/models"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// SetupDatabase opens the MySQL connection, retrying while the server starts.
// In dev the schema is auto migrated; other environments use cmd/migrate.
func SetupDatabase(dsn string, autoMigrate bool) *gorm.DB {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			if autoMigrate {
				if err := AutoMigrate(db); err != nil {
					log.Printf("Auto migration failed: %v", err)
				}
			}
			return db
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	panic(err)
}

// AutoMigrate creates or updates every table the app owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.AccountMembership{},
		&models.RolePermission{},
		&models.Invitation{},
		&models.BillingCustomer{},
		&models.BillingSubscription{},
		&models.BillingSubscriptionItem{},
		&models.BillingOrder{},
		&models.BillingOrderItem{},
		&models.BillingWebhookEvent{},
		&models.Setting{},
	)
}

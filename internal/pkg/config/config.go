// Package config builds the typed runtime configuration once at startup.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/ManuelReschke/FoxKit/internal/pkg/env"
)

type App struct {
	Host        string `validate:"required"`
	Port        string `validate:"required,numeric"`
	URL         string `validate:"required,url"`
	Env         string `validate:"oneof=dev prod test"`
	ProductName string `validate:"required"`
	SupportURL  string `validate:"omitempty,url"`
}

type Database struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	User     string
	Password string
	Name     string `validate:"required"`
}

type Cache struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Password string
}

type Stripe struct {
	SecretKey      string
	WebhookSecret  string
	MeterEventName string
}

type LemonSqueezy struct {
	SecretKey     string
	StoreID       string
	SigningSecret string
}

type SMTP struct {
	Host     string
	Port     string `validate:"omitempty,numeric"`
	Username string
	Password string
	Sender   string `validate:"omitempty,email"`
}

type Metrics struct {
	User     string
	Password string `validate:"required_with=User"`
}

type Config struct {
	App          App
	Database     Database
	Cache        Cache
	Stripe       Stripe
	LemonSqueezy LemonSqueezy
	SMTP         SMTP
	Metrics      Metrics

	// BillingProvider selects the catalog and is the fallback until the
	// billing_provider setting is persisted.
	BillingProvider        catalog.Provider `validate:"required,oneof=stripe lemon-squeezy paddle"`
	DBWebhookSecret        string           `validate:"required"`
	SlackBillingWebhookURL string           `validate:"omitempty,url"`
}

// Load reads the environment (after env.SetupEnvFile) into a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		App: App{
			Host:        env.GetEnv("APP_HOST", "localhost"),
			Port:        env.GetEnv("APP_PORT", "4000"),
			URL:         env.GetEnv("APP_URL", "http://localhost:4000"),
			Env:         env.GetEnv("APP_ENV", "prod"),
			ProductName: env.GetEnv("APP_PRODUCT_NAME", "FoxKit"),
			SupportURL:  env.GetEnv("APP_SUPPORT_URL", ""),
		},
		Database: Database{
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", "3306"),
			User:     env.GetEnv("DB_USER", ""),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Name:     env.GetEnv("DB_NAME", "foxkit"),
		},
		Cache: Cache{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		Stripe: Stripe{
			SecretKey:      env.GetEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:  env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			MeterEventName: env.GetEnv("STRIPE_METER_EVENT_NAME", ""),
		},
		LemonSqueezy: LemonSqueezy{
			SecretKey:     env.GetEnv("LEMON_SQUEEZY_SECRET_KEY", ""),
			StoreID:       env.GetEnv("LEMON_SQUEEZY_STORE_ID", ""),
			SigningSecret: env.GetEnv("LEMON_SQUEEZY_SIGNING_SECRET", ""),
		},
		SMTP: SMTP{
			Host:     env.GetEnv("SMTP_HOST", "localhost"),
			Port:     env.GetEnv("SMTP_PORT", "25"),
			Username: env.GetEnv("SMTP_USERNAME", ""),
			Password: env.GetEnv("SMTP_PASSWORD", ""),
			Sender:   env.GetEnv("EMAIL_SENDER", ""),
		},
		Metrics: Metrics{
			User:     env.GetEnv("METRICS_USER", ""),
			Password: env.GetEnv("METRICS_PASSWORD", ""),
		},
		BillingProvider:        catalog.Provider(strings.TrimSpace(env.GetEnv("BILLING_PROVIDER", string(catalog.ProviderStripe)))),
		DBWebhookSecret:        env.GetEnv("SUPABASE_DB_WEBHOOK_SECRET", ""),
		SlackBillingWebhookURL: env.GetEnv("SLACK_BILLING_WEBHOOK_URL", ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var configValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(providerCredentials, Config{})
	return v
}

// providerCredentials requires the credentials of the configured provider.
func providerCredentials(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	switch cfg.BillingProvider {
	case catalog.ProviderStripe:
		if cfg.Stripe.SecretKey == "" {
			sl.ReportError(cfg.Stripe.SecretKey, "Stripe.SecretKey", "SecretKey", "required_for_provider", "")
		}
		if cfg.Stripe.WebhookSecret == "" {
			sl.ReportError(cfg.Stripe.WebhookSecret, "Stripe.WebhookSecret", "WebhookSecret", "required_for_provider", "")
		}
	case catalog.ProviderLemonSqueezy:
		if cfg.LemonSqueezy.SecretKey == "" {
			sl.ReportError(cfg.LemonSqueezy.SecretKey, "LemonSqueezy.SecretKey", "SecretKey", "required_for_provider", "")
		}
		if cfg.LemonSqueezy.StoreID == "" {
			sl.ReportError(cfg.LemonSqueezy.StoreID, "LemonSqueezy.StoreID", "StoreID", "required_for_provider", "")
		}
		if cfg.LemonSqueezy.SigningSecret == "" {
			sl.ReportError(cfg.LemonSqueezy.SigningSecret, "LemonSqueezy.SigningSecret", "SigningSecret", "required_for_provider", "")
		}
	}
}

func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}

// ListenAddr is the address fiber listens on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.App.Host, c.App.Port)
}

// DSN is the MySQL data source name for gorm.
func (d Database) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MigrateURL is the golang-migrate database url.
func (d Database) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func (c Cache) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

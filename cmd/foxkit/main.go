package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/FoxKit/app/controllers"
	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/app/repository"
	"github.com/ManuelReschke/FoxKit/internal/pkg/accountbilling"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/lemonsqueezy"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/providers"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/stripeprovider"
	"github.com/ManuelReschke/FoxKit/internal/pkg/cache"
	"github.com/ManuelReschke/FoxKit/internal/pkg/config"
	"github.com/ManuelReschke/FoxKit/internal/pkg/constants"
	"github.com/ManuelReschke/FoxKit/internal/pkg/database"
	"github.com/ManuelReschke/FoxKit/internal/pkg/dbwebhook"
	"github.com/ManuelReschke/FoxKit/internal/pkg/env"
	"github.com/ManuelReschke/FoxKit/internal/pkg/mail"
	"github.com/ManuelReschke/FoxKit/internal/pkg/metrics"
	"github.com/ManuelReschke/FoxKit/internal/pkg/notify"
	"github.com/ManuelReschke/FoxKit/internal/pkg/router"
	"github.com/ManuelReschke/FoxKit/internal/pkg/session"
	"github.com/ManuelReschke/FoxKit/internal/pkg/usage"
)

const usageFlushInterval = 1 * time.Minute

func main() {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	app, worker := NewApplication(cfg)
	worker.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		fiberlog.Info("[Main] Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			fiberlog.Errorf("[Main] Shutdown failed: %v", err)
		}
	}()

	err = app.Listen(cfg.ListenAddr())
	worker.Stop()
	if err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires the billing stack into a fiber app. The returned
// worker reports buffered usage and is started by the caller.
func NewApplication(cfg *config.Config) (*fiber.App, *usage.Worker) {
	db := database.SetupDatabase(cfg.Database.DSN(), cfg.IsDev())
	rdb := cache.SetupCache(cfg.Cache.Addr(), cfg.Cache.Password)
	if err := models.LoadSettings(db, string(cfg.BillingProvider)); err != nil {
		fiberlog.Warnf("[Main] Settings not loaded: %v", err)
	}
	repos := repository.NewFactory(db).GetRepositories()

	cat := config.BillingCatalog(cfg.BillingProvider)
	registry := providers.NewRegistry(providers.Config{
		Stripe: stripeprovider.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
		},
		LemonSqueezy: lemonsqueezy.Config{
			APIKey:        cfg.LemonSqueezy.SecretKey,
			StoreID:       cfg.LemonSqueezy.StoreID,
			SigningSecret: cfg.LemonSqueezy.SigningSecret,
		},
	}, cat)
	source := billing.NewSettingsProviderSource(repos.Setting, rdb, cfg.BillingProvider)
	gateways := billing.NewGatewayFactory(registry, source)

	reg := metrics.NewRegistry()
	store := billing.NewService(billing.NewRepository(db))
	webhooks := billing.NewWebhookService(registry, source, store, billing.NewMetrics(reg))
	if cfg.SlackBillingWebhookURL != "" {
		notify.NewSlackNotifier(cfg.SlackBillingWebhookURL).Register(webhooks)
	}

	deps := accountbilling.Deps{
		Accounts: repos.Account,
		Store:    store,
		Gateways: gateways,
		Catalog:  cat,
		AppURL:   cfg.App.URL,
	}
	buffer := usage.NewBuffer(rdb, store, gateways, cfg.Stripe.MeterEventName)
	worker := usage.NewWorker(buffer, usageFlushInterval)

	renderer, err := mail.NewRenderer()
	if err != nil {
		log.Fatalf("mail templates: %v", err)
	}
	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		Sender:   cfg.SMTP.Sender,
	})
	rowChanges := dbwebhook.NewRouter(dbwebhook.Config{
		ProductName: cfg.App.ProductName,
		AppURL:      cfg.App.URL,
		SupportURL:  cfg.App.SupportURL,
	}, mailer, renderer, repos.Account, repos.User, gateways, accountbilling.NewSeatService(deps))

	billingController := controllers.NewBillingController(
		accountbilling.NewPersonalService(deps),
		accountbilling.NewTeamService(deps),
		deps,
		accountbilling.NewUsageService(deps, buffer),
		webhooks,
		cat,
	)
	dbWebhookController := controllers.NewDBWebhookController(rowChanges)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: cfg.App.ProductName,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if basePath := findBasePath(); basePath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: constants.APIDocsRoute + "/",
			FilePath: basePath + "public/docs/v1/openapi.yml",
			Path:     "v1",
		}))
	} else {
		fiberlog.Warn("[Main] public/docs not found, API docs disabled")
	}

	// ROUTER
	router.InstallRouter(app,
		router.NewMetricsRouter(metrics.Handler(reg), cfg.Metrics.User, cfg.Metrics.Password),
		router.NewHttpRouter(session.NewSessionStore(rdb, !cfg.IsDev()), billingController, !cfg.IsDev()),
		router.NewApiRouter(billingController, dbWebhookController, cfg.DBWebhookSecret),
	)

	return app, worker
}

func findBasePath() string {
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/foxkit to project root
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); err == nil {
			return path
		}
	}
	return ""
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/app/repository"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/ManuelReschke/FoxKit/internal/pkg/cache"
	"github.com/ManuelReschke/FoxKit/internal/pkg/config"
	"github.com/ManuelReschke/FoxKit/internal/pkg/database"
	"github.com/ManuelReschke/FoxKit/internal/pkg/env"
)

// billing-provider shows or switches the persisted billing provider. Running
// servers pick the change up once the cached value is dropped.
func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	db := database.SetupDatabase(cfg.Database.DSN(), false)
	rdb := cache.SetupCache(cfg.Cache.Addr(), cfg.Cache.Password)
	settings := repository.NewSettingRepository(db)
	source := billing.NewSettingsProviderSource(settings, rdb, cfg.BillingProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "show":
		if err := models.LoadSettings(db, string(cfg.BillingProvider)); err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
		current, err := settings.Get()
		if err != nil {
			log.Fatal(err)
		}
		active, err := source.Provider(ctx)
		if err != nil {
			log.Fatalf("Failed to resolve provider: %v", err)
		}
		log.Printf("Persisted provider: %s, active provider: %s", current.BillingProvider, active)

	case "set":
		if len(os.Args) < 3 {
			log.Fatal("set needs a provider")
		}
		provider, err := catalog.ParseProvider(os.Args[2])
		if err != nil {
			log.Fatalf("Unknown provider %q: %v", os.Args[2], err)
		}
		if err := settings.SetValue(models.SettingBillingProvider, string(provider)); err != nil {
			log.Fatalf("Failed to save provider: %v", err)
		}
		if err := source.Invalidate(ctx); err != nil {
			log.Printf("Provider saved but cache not cleared, servers switch within a minute: %v", err)
			return
		}
		log.Printf("Billing provider set to %s", provider)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run ./cmd/billing-provider [command]")
	fmt.Println("Commands:")
	fmt.Println("  show            - print the persisted and the active provider")
	fmt.Printf("  set <provider>  - persist the provider (%v)\n", catalog.Providers())
}

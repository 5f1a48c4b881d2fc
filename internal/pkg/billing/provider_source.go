package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/FoxKit/app/models"
	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	providerCacheKey = "settings:" + models.SettingBillingProvider
	providerCacheTTL = time.Minute
)

// SettingReader reads one persisted setting; "" means unset.
type SettingReader interface {
	GetValue(key string) (string, error)
}

// SettingsProviderSource reads the billing_provider setting through a short
// lived redis cache and falls back to a static provider while unset.
type SettingsProviderSource struct {
	settings SettingReader
	cache    *redis.Client
	fallback Provider
	ttl      time.Duration
}

func NewSettingsProviderSource(settings SettingReader, cache *redis.Client, fallback Provider) *SettingsProviderSource {
	return &SettingsProviderSource{settings: settings, cache: cache, fallback: fallback, ttl: providerCacheTTL}
}

func (s *SettingsProviderSource) Provider(ctx context.Context) (Provider, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, providerCacheKey).Result()
		switch {
		case err == nil:
			return catalog.ParseProvider(cached)
		case !errors.Is(err, redis.Nil):
			fiberlog.Warnf("[Billing] provider cache read failed: %v", err)
		}
	}

	value, err := s.settings.GetValue(models.SettingBillingProvider)
	if err != nil {
		return "", fmt.Errorf("read billing provider setting: %w", err)
	}
	if value == "" {
		value = string(s.fallback)
	}
	provider, err := catalog.ParseProvider(value)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, providerCacheKey, string(provider), s.ttl).Err(); err != nil {
			fiberlog.Warnf("[Billing] provider cache write failed: %v", err)
		}
	}
	return provider, nil
}

// Invalidate drops the cached provider after an admin changed the setting.
func (s *SettingsProviderSource) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, providerCacheKey).Err()
}

// StaticProviderSource always yields the same provider.
type StaticProviderSource Provider

func (p StaticProviderSource) Provider(context.Context) (Provider, error) {
	return Provider(p), nil
}

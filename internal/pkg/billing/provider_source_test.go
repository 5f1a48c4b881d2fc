package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuelReschke/FoxKit/internal/pkg/billing/catalog"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingMap map[string]string

func (m settingMap) GetValue(key string) (string, error) {
	if v, ok := m["error"]; ok {
		return "", errors.New(v)
	}
	return m[key], nil
}

func TestSettingsProviderSource_CachesPersistedProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	settings := settingMap{"billing_provider": "lemon-squeezy"}
	source := NewSettingsProviderSource(settings, client, catalog.ProviderStripe)
	ctx := context.Background()

	p, err := source.Provider(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.ProviderLemonSqueezy, p)

	cached, err := mr.Get("settings:billing_provider")
	require.NoError(t, err)
	assert.Equal(t, "lemon-squeezy", cached)

	settings["billing_provider"] = "stripe"
	p, err = source.Provider(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.ProviderLemonSqueezy, p, "served from cache")

	mr.FastForward(2 * time.Minute)
	p, err = source.Provider(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.ProviderStripe, p)

	settings["billing_provider"] = "lemon-squeezy"
	require.NoError(t, source.Invalidate(ctx))
	p, err = source.Provider(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.ProviderLemonSqueezy, p)
}

func TestSettingsProviderSource_FallbackAndErrors(t *testing.T) {
	ctx := context.Background()

	p, err := NewSettingsProviderSource(settingMap{}, nil, catalog.ProviderStripe).Provider(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.ProviderStripe, p)

	_, err = NewSettingsProviderSource(settingMap{"billing_provider": "paypal"}, nil, catalog.ProviderStripe).Provider(ctx)
	assert.Error(t, err)

	_, err = NewSettingsProviderSource(settingMap{"error": "db down"}, nil, catalog.ProviderStripe).Provider(ctx)
	assert.ErrorContains(t, err, "db down")
}

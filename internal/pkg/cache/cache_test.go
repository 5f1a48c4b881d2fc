package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupCache(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")

	c := SetupCache(mr.Addr(), "secret")
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute).Err())
	assert.Equal(t, 0, c.Options().DB)

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestSetupCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	var c interface{ Close() error }
	require.NotPanics(t, func() { c = SetupCache(addr, "") })
	_ = c.Close()
}

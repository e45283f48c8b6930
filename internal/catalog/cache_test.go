package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/catalog"
)

func newTestCache(t *testing.T) (*catalog.Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute), client
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var missed map[string]string
	ok, err := cache.GetJSON(ctx, "catalog:product:kurta", &missed)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.SetJSON(ctx, "catalog:product:kurta", map[string]string{"name": "Kurta"}))

	var hit map[string]string
	ok, err = cache.GetJSON(ctx, "catalog:product:kurta", &hit)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Kurta", hit["name"])
}

func TestCacheInvalidateClearsProductAndLists(t *testing.T) {
	cache, client := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetJSON(ctx, catalog.KeyProduct("kurta"), map[string]string{"name": "Kurta"}))
	require.NoError(t, cache.SetJSON(ctx, catalog.KeyList(24, 0), []string{"kurta"}))
	require.NoError(t, cache.SetJSON(ctx, catalog.KeyList(24, 24), []string{"saree"}))

	require.NoError(t, cache.Invalidate(ctx, "kurta"))

	for _, key := range []string{catalog.KeyProduct("kurta"), catalog.KeyList(24, 0), catalog.KeyList(24, 24)} {
		n, err := client.Exists(ctx, key).Result()
		require.NoError(t, err)
		require.Zero(t, n, key)
	}
}

func TestCacheNilClientIsNoop(t *testing.T) {
	cache := catalog.NewCache(nil, time.Minute)
	ctx := context.Background()

	ok, err := cache.GetJSON(ctx, "k", &struct{}{})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, cache.SetJSON(ctx, "k", 1))
	require.NoError(t, cache.Invalidate(ctx, "slug"))
}

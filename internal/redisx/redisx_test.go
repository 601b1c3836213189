package redisx

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-api/internal/model"
)

// These tests need a live Redis; set REDIS_TEST_ADDR to run them.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := New(addr)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, Ping(context.Background(), rdb))
	return rdb
}

func TestOrderCacheRoundTrip(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()
	c := NewOrderCache(rdb, time.Minute, nil)

	o := model.Order{ID: uuid.NewString(), CustomerID: "c1", ProductIDs: []string{"a"}, Status: model.StatusPending}
	_, ok := c.Get(ctx, o.ID)
	assert.False(t, ok)

	c.Set(ctx, o)
	got, ok := c.Get(ctx, o.ID)
	require.True(t, ok)
	assert.Equal(t, o.ProductIDs, got.ProductIDs)

	c.Invalidate(ctx, o.ID)
	_, ok = c.Get(ctx, o.ID)
	assert.False(t, ok)
}

func TestOrderCacheDropsStaleSetAfterInvalidate(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()
	c := NewOrderCache(rdb, time.Minute, nil)

	stale := model.Order{ID: uuid.NewString(), CustomerID: "c1", ProductIDs: []string{"a"}, Status: model.StatusPending}
	// a reader loads stale, then a writer pays the order and invalidates
	// before the reader fills the cache
	c.Invalidate(ctx, stale.ID)
	c.Set(ctx, stale)

	_, ok := c.Get(ctx, stale.ID)
	assert.False(t, ok)

	fresh := stale
	fresh.Status = model.StatusPaid
	require.NoError(t, rdb.Del(ctx, "order:"+stale.ID).Err())
	c.Set(ctx, fresh)
	c.Set(ctx, stale)
	got, ok := c.Get(ctx, stale.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusPaid, got.Status)
}

func TestIdempotencyPendingClaimExpires(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()
	idem := NewIdempotency(rdb, time.Minute)
	idem.pendingTTL = time.Second
	key := uuid.NewString()

	_, claimed, _, err := idem.Claim(ctx, "c1", key)
	require.NoError(t, err)
	require.True(t, claimed)

	time.Sleep(1500 * time.Millisecond)
	_, claimed, inFlight, err := idem.Claim(ctx, "c1", key)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.False(t, inFlight)

	require.NoError(t, idem.Complete(ctx, "c1", key, "order-1"))
	ttl, err := rdb.TTL(ctx, idemKey("c1", key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second, "completed keys keep the long ttl")
}

func TestIdempotencyClaim(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()
	idem := NewIdempotency(rdb, time.Minute)
	key := uuid.NewString()

	_, claimed, _, err := idem.Claim(ctx, "c1", key)
	require.NoError(t, err)
	assert.True(t, claimed)

	_, claimed, inFlight, err := idem.Claim(ctx, "c1", key)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.True(t, inFlight)

	require.NoError(t, idem.Complete(ctx, "c1", key, "order-1"))
	id, claimed, inFlight, err := idem.Claim(ctx, "c1", key)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.False(t, inFlight)
	assert.Equal(t, "order-1", id)

	_, claimed, _, err = idem.Claim(ctx, "c2", key)
	require.NoError(t, err)
	assert.True(t, claimed, "keys are per customer")
}

func TestDedupFirstSeen(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()
	d := NewDedup(rdb)
	key := "dedup:test:" + uuid.NewString()

	first, err := d.FirstSeen(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = d.FirstSeen(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, first)
}

package commerce

import (
	"context"
	"testing"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisInventory(t *testing.T) (*RedisInventory, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisInventory(client, "test:"), mr
}

func TestRedisInventoryReserve(t *testing.T) {
	inv, mr := newRedisInventory(t)
	ctx := context.Background()
	require.NoError(t, inv.SetStock(ctx, "t1", "a", 3))
	require.NoError(t, inv.SetStock(ctx, "t1", "b", 1))

	require.NoError(t, inv.Reserve(ctx, "t1", []StockLine{{"a", 1}, {"a", 1}, {"b", 1}}))

	n, err := inv.Available(ctx, "t1", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	v, err := mr.Get("test:stock:t1:b")
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}

func TestRedisInventoryAllOrNothing(t *testing.T) {
	inv, _ := newRedisInventory(t)
	ctx := context.Background()
	require.NoError(t, inv.SetStock(ctx, "t1", "a", 5))
	require.NoError(t, inv.SetStock(ctx, "t1", "b", 1))

	err := inv.Reserve(ctx, "t1", []StockLine{{"a", 2}, {"b", 2}})
	assert.Equal(t, model.CodeInsufficientStock, errx.CodeOf(err))

	n, err := inv.Available(ctx, "t1", "a")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRedisInventoryIsTenantScoped(t *testing.T) {
	inv, _ := newRedisInventory(t)
	ctx := context.Background()
	require.NoError(t, inv.SetStock(ctx, "t1", "a", 5))

	err := inv.Reserve(ctx, "t2", []StockLine{{"a", 1}})
	assert.Equal(t, model.CodeInsufficientStock, errx.CodeOf(err))
}

func TestMemoryStoreWithRedisInventory(t *testing.T) {
	inv, _ := newRedisInventory(t)
	s := seeded(t, WithInventory(inv))
	ctx := context.Background()

	_, created, err := s.CreateOrder(ctx, DemoTenantID, OrderRequest{
		IdempotencyKey: "k1",
		Items:          []model.CartItem{{ProductID: "prod-010", Quantity: 4}},
	})
	require.NoError(t, err)
	assert.True(t, created)

	p, err := s.Product(ctx, DemoTenantID, "prod-010")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
	assert.False(t, p.InStock())
}

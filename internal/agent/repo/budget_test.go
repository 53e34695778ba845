package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBudget(t *testing.T) {
	client, mr := newRedis(t)
	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := NewRedisBudget(client, "test:", 0.01)
	b.now = func() time.Time { return day }
	ctx := context.Background()

	ok, err := b.Allow(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Charge(ctx, "t1", 0.006))
	ok, _ = b.Allow(ctx, "t1")
	assert.True(t, ok)

	require.NoError(t, b.Charge(ctx, "t1", 0.005))
	ok, _ = b.Allow(ctx, "t1")
	assert.False(t, ok)

	ok, _ = b.Allow(ctx, "t2")
	assert.True(t, ok, "budgets are per tenant")

	assert.Equal(t, budgetKeyTTL, mr.TTL("test:budget:t1:20260301"))

	day = day.Add(24 * time.Hour)
	ok, _ = b.Allow(ctx, "t1")
	assert.True(t, ok, "a new UTC day starts a fresh counter")
}

func TestRedisBudgetIgnoresNonPositiveCharges(t *testing.T) {
	client, mr := newRedis(t)
	b := NewRedisBudget(client, "test:", 1)
	require.NoError(t, b.Charge(context.Background(), "t1", 0))
	assert.Empty(t, mr.Keys())
}

func TestRedisBudgetUnavailable(t *testing.T) {
	client, mr := newRedis(t)
	b := NewRedisBudget(client, "test:", 1)
	mr.Close()

	_, err := b.Allow(context.Background(), "t1")
	assert.Error(t, err)
}

func TestMemoryBudget(t *testing.T) {
	b := NewMemoryBudget(0.01)
	ctx := context.Background()
	require.NoError(t, b.Charge(ctx, "t1", 0.02))

	ok, err := b.Allow(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, _ = b.Allow(ctx, "t2")
	assert.True(t, ok)

	unlimited := NewMemoryBudget(0)
	require.NoError(t, unlimited.Charge(ctx, "t1", 100))
	ok, _ = unlimited.Allow(ctx, "t1")
	assert.True(t, ok)
}

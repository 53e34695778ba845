package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// budgetKeyTTL outlives the UTC day the counter belongs to.
const budgetKeyTTL = 48 * time.Hour

func budgetDay(t time.Time) string {
	return t.UTC().Format("20060102")
}

// RedisBudget is a per-tenant daily LLM spend counter. A non-positive daily
// limit disables the gate.
type RedisBudget struct {
	rdb    redis.Cmdable
	prefix string
	daily  float64
	now    func() time.Time
}

func NewRedisBudget(rdb redis.Cmdable, prefix string, dailyUSD float64) *RedisBudget {
	return &RedisBudget{rdb: rdb, prefix: prefix, daily: dailyUSD, now: time.Now}
}

func (b *RedisBudget) key(tenantID string) string {
	return fmt.Sprintf("%sbudget:%s:%s", b.prefix, tenantID, budgetDay(b.now()))
}

func (b *RedisBudget) Allow(ctx context.Context, tenantID string) (bool, error) {
	if b.daily <= 0 {
		return true, nil
	}
	spent, err := b.Spent(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return spent < b.daily, nil
}

func (b *RedisBudget) Charge(ctx context.Context, tenantID string, usd float64) error {
	if usd <= 0 {
		return nil
	}
	key := b.key(tenantID)
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.IncrByFloat(ctx, key, usd)
		p.Expire(ctx, key, budgetKeyTTL)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to charge tenant budget")
		return errx.WrapRedis(err)
	}
	return nil
}

// Spent is today's accumulated spend for the tenant.
func (b *RedisBudget) Spent(ctx context.Context, tenantID string) (float64, error) {
	key := b.key(tenantID)
	v, err := b.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errx.WrapRedis(err)
	}
	spent, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse budget counter %s: %w", key, err)
	}
	return spent, nil
}

type MemoryBudget struct {
	mu    sync.Mutex
	daily float64
	now   func() time.Time
	spent map[string]float64
}

func NewMemoryBudget(dailyUSD float64) *MemoryBudget {
	return &MemoryBudget{daily: dailyUSD, now: time.Now, spent: map[string]float64{}}
}

func (b *MemoryBudget) Allow(_ context.Context, tenantID string) (bool, error) {
	if b.daily <= 0 {
		return true, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent[tenantID+"/"+budgetDay(b.now())] < b.daily, nil
}

func (b *MemoryBudget) Charge(_ context.Context, tenantID string, usd float64) error {
	if usd <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spent[tenantID+"/"+budgetDay(b.now())] += usd
	return nil
}

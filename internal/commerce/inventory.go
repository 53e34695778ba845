package commerce

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const maxReserveAttempts = 5

// StockLine is one product quantity to take from stock.
type StockLine struct {
	ProductID string
	Quantity  int
}

// Inventory checks and decrements stock atomically for a set of lines.
type Inventory interface {
	Reserve(ctx context.Context, tenantID string, lines []StockLine) error
	SetStock(ctx context.Context, tenantID, productID string, qty int) error
	Available(ctx context.Context, tenantID, productID string) (int, error)
}

func insufficientStock(productID string) error {
	return errx.Validation(model.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", productID))
}

// mergeLines sums quantities per product so duplicate cart lines are checked together.
func mergeLines(lines []StockLine) []StockLine {
	byID := make(map[string]int, len(lines))
	for _, l := range lines {
		byID[l.ProductID] += l.Quantity
	}
	out := make([]StockLine, 0, len(byID))
	for id, q := range byID {
		out = append(out, StockLine{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// RedisInventory keeps stock counters in Redis and reserves them with WATCH/MULTI,
// so a partially satisfiable order commits nothing.
type RedisInventory struct {
	client *redis.Client
	prefix string
}

func NewRedisInventory(client *redis.Client, prefix string) *RedisInventory {
	return &RedisInventory{client: client, prefix: prefix}
}

func (r *RedisInventory) stockKey(tenantID, productID string) string {
	return fmt.Sprintf("%sstock:%s:%s", r.prefix, tenantID, productID)
}

func (r *RedisInventory) SetStock(ctx context.Context, tenantID, productID string, qty int) error {
	return errx.WrapRedis(r.client.Set(ctx, r.stockKey(tenantID, productID), qty, 0).Err())
}

func (r *RedisInventory) Available(ctx context.Context, tenantID, productID string) (int, error) {
	n, err := r.client.Get(ctx, r.stockKey(tenantID, productID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errx.WrapRedis(err)
	}
	return n, nil
}

func (r *RedisInventory) Reserve(ctx context.Context, tenantID string, lines []StockLine) error {
	lines = mergeLines(lines)
	keys := make([]string, len(lines))
	for i, l := range lines {
		keys[i] = r.stockKey(tenantID, l.ProductID)
	}

	txf := func(tx *redis.Tx) error {
		for i, l := range lines {
			n, err := tx.Get(ctx, keys[i]).Int()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if n < l.Quantity {
				return insufficientStock(l.ProductID)
			}
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			for i, l := range lines {
				p.DecrBy(ctx, keys[i], int64(l.Quantity))
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logx.Debug().Str("tenant_id", tenantID).Int("attempt", attempt).Msg("stock reservation contended, retrying")
			continue
		}
		if errx.KindOf(err) == errx.KindValidation {
			return err
		}
		return errx.WrapRedis(err)
	}
	return errx.Upstream(redis.TxFailedErr, "stock reservation contended")
}

var _ Inventory = (*RedisInventory)(nil)

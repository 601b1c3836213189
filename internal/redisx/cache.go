package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/model"
)

// OrderCache keeps order snapshots for GET /orders/{id}. Redis failures are
// logged and reported as misses. Set only fills an empty key, and Invalidate
// leaves a short tombstone, so a snapshot read before a write cannot be put
// back after it.
type OrderCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewOrderCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *OrderCache {
	if ttl <= 0 {
		ttl = TTLOrderCache
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *OrderCache) Get(ctx context.Context, id string) (model.Order, bool) {
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrder, id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("order cache get", zap.String("order_id", id), zap.Error(err))
		}
		return model.Order{}, false
	}
	if string(b) == tombstone {
		return model.Order{}, false
	}
	var o model.Order
	if err := json.Unmarshal(b, &o); err != nil {
		c.log.Warn("order cache decode", zap.String("order_id", id), zap.Error(err))
		return model.Order{}, false
	}
	return o, true
}

func (c *OrderCache) Set(ctx context.Context, o model.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	if err := c.rdb.SetNX(ctx, fmt.Sprintf(KeyOrder, o.ID), b, c.ttl).Err(); err != nil {
		c.log.Warn("order cache set", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (c *OrderCache) Invalidate(ctx context.Context, id string) {
	if err := c.rdb.Set(ctx, fmt.Sprintf(KeyOrder, id), tombstone, TTLOrderTombstone).Err(); err != nil {
		c.log.Warn("order cache invalidate", zap.String("order_id", id), zap.Error(err))
	}
}

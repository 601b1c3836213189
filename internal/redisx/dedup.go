package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Dedup struct{ rdb *redis.Client }

func NewDedup(rdb *redis.Client) *Dedup { return &Dedup{rdb: rdb} }

// FirstSeen sets key if absent and reports whether this call set it.
func (d *Dedup) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return d.rdb.SetNX(ctx, key, 1, ttl).Result()
}

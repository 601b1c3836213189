package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idempotency remembers which order an Idempotency-Key produced. Keys are
// scoped per customer.
type Idempotency struct {
	rdb        *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotency keeps completed keys for ttl. An unfinished claim expires
// after TTLIdempotencyPending.
func NewIdempotency(rdb *redis.Client, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = TTLIdempotency
	}
	return &Idempotency{rdb: rdb, ttl: ttl, pendingTTL: TTLIdempotencyPending}
}

func idemKey(customerID, key string) string {
	return fmt.Sprintf(KeyIdemOrderCreate, customerID, key)
}

// Claim reserves key for a new request. When the key was already used it
// returns the stored order id; inFlight is true while the first request has
// not finished yet.
func (i *Idempotency) Claim(ctx context.Context, customerID, key string) (orderID string, claimed, inFlight bool, err error) {
	k := idemKey(customerID, key)
	ok, err := i.rdb.SetNX(ctx, k, pendingMarker, i.pendingTTL).Result()
	if err != nil {
		return "", false, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return "", true, false, nil
	}
	v, err := i.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; treat as fresh
		return i.Claim(ctx, customerID, key)
	}
	if err != nil {
		return "", false, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if v == pendingMarker {
		return "", false, true, nil
	}
	return v, false, false, nil
}

// Complete binds key to the created order.
func (i *Idempotency) Complete(ctx context.Context, customerID, key, orderID string) error {
	return i.rdb.Set(ctx, idemKey(customerID, key), orderID, i.ttl).Err()
}

// Abandon frees key after a failed creation so the client may retry.
func (i *Idempotency) Abandon(ctx context.Context, customerID, key string) error {
	return i.rdb.Del(ctx, idemKey(customerID, key)).Err()
}

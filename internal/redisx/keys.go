package redisx

import "time"

const (
	// idem:order:create:{customer_id}:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// order:{order_id} -> order JSON
	KeyOrder = "order:%s"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLOrderCache  = 5 * time.Minute
	TTLDedup       = 48 * time.Hour

	// a claim left behind by a crashed request frees itself after this
	TTLIdempotencyPending = time.Minute
	TTLOrderTombstone     = 30 * time.Second
)

// pendingMarker holds an idempotency key while the first request is still
// creating its order.
const pendingMarker = "pending"

// tombstone marks an invalidated order key so a reader holding an older
// snapshot cannot write it back.
const tombstone = "-"

package inventory

import (
	"encoding/json"
	"time"
)

const (
	EventStockLow = "ProductStockLow"
	TopicStockLow = "product.stock.low"
)

type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	TraceID      string          `json:"trace_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

type StockLowPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// PartitionKey keeps all alerts of one product on one partition.
func PartitionKey(productID string) []byte { return []byte(productID) }

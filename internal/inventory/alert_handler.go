package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
)

// Deduper reports whether key is seen for the first time within ttl.
type Deduper interface {
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// AlertHandler consumes ProductStockLow events and raises the admin alert.
type AlertHandler struct {
	Dedup       Deduper
	DedupTTL    time.Duration
	ServiceName string
	Log         *zap.Logger
}

func (h *AlertHandler) HandleStockLow(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.Header(m, kafkax.HeaderEventType); t != "" && t != EventStockLow {
		return nil
	}
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message: log and commit so it is not redelivered forever
		h.Log.Error("undecodable envelope", zap.Error(err), zap.Int64("offset", m.Offset))
		return nil
	}
	if env.EventType != EventStockLow {
		return nil
	}

	if h.Dedup != nil {
		first, err := h.Dedup.FirstSeen(ctx, fmt.Sprintf("dedup:%s:%s", h.ServiceName, env.EventID), h.DedupTTL)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			return nil
		}
	}

	p, err := kafkax.DecodePayload[StockLowPayload](env.Payload)
	if err != nil {
		h.Log.Error("undecodable stock payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	h.Log.Warn("ADMIN ALERT: product stock below threshold",
		zap.String("event_id", env.EventID),
		zap.String("trace_id", env.TraceID),
		zap.String("product_id", p.ProductID),
		zap.String("name", p.Name),
		zap.Int("stock", p.Stock),
		zap.Int("threshold", p.Threshold))
	return nil
}

package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

// Notifier receives low-stock alerts. Implementations must not block the
// caller for long and must swallow their own failures.
type Notifier interface {
	LowStock(ctx context.Context, p model.Product, threshold int)
}

// Alerts fires the notifier for every product whose stock is at or below
// Threshold. It is called after the stock change has committed.
type Alerts struct {
	Threshold int
	Notifier  Notifier
}

func (a *Alerts) Check(ctx context.Context, products ...model.Product) {
	if a == nil || a.Notifier == nil {
		return
	}
	for _, p := range products {
		if p.Stock <= a.Threshold {
			a.Notifier.LowStock(ctx, p, a.Threshold)
		}
	}
}

type publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// KafkaNotifier publishes ProductStockLow envelopes.
type KafkaNotifier struct {
	Producer    publisher
	ServiceName string
	Log         *zap.Logger
}

func (n *KafkaNotifier) LowStock(ctx context.Context, p model.Product, threshold int) {
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID = sc.TraceID().String()
	}
	payload, err := kafkax.Encode(StockLowPayload{
		ProductID: p.ID, Name: p.Name, Stock: p.Stock, Threshold: threshold,
	})
	if err != nil {
		n.logger().Error("encode low stock payload", zap.String("product_id", p.ID), zap.Error(err))
		return
	}
	ev := Envelope{
		EventID:      uuid.NewString(),
		EventType:    EventStockLow,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     n.ServiceName,
		TraceID:      traceID,
		Payload:      payload,
	}
	value, err := kafkax.Encode(ev)
	if err != nil {
		n.logger().Error("encode low stock envelope", zap.String("product_id", p.ID), zap.Error(err))
		return
	}
	if !n.Producer.Publish(PartitionKey(p.ID), value, kafkax.EventHeaders(EventStockLow, ev.EventVersion)...) {
		n.logger().Warn("low stock alert dropped", zap.String("product_id", p.ID))
	}
}

func (n *KafkaNotifier) logger() *zap.Logger {
	if n.Log == nil {
		return zap.NewNop()
	}
	return n.Log
}

// LogNotifier only logs; used when no broker is configured.
type LogNotifier struct{ Log *zap.Logger }

func (n LogNotifier) LowStock(_ context.Context, p model.Product, threshold int) {
	n.Log.Info("product stock below threshold",
		zap.String("product_id", p.ID),
		zap.String("name", p.Name),
		zap.Int("stock", p.Stock),
		zap.Int("threshold", threshold))
}

package inventory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ariefcatur/go-shop-api/internal/model"
)

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) LowStock(ctx context.Context, p model.Product, threshold int) {
	m.Called(p.ID, p.Stock, threshold)
}

func TestAlertsFireAtOrBelowThreshold(t *testing.T) {
	n := new(MockNotifier)
	n.On("LowStock", "p-low", 10, 10).Once()
	n.On("LowStock", "p-zero", 0, 10).Once()

	a := &Alerts{Threshold: 10, Notifier: n}
	a.Check(context.Background(),
		model.Product{ID: "p-low", Stock: 10},
		model.Product{ID: "p-ok", Stock: 11},
		model.Product{ID: "p-zero", Stock: 0},
	)

	n.AssertExpectations(t)
	n.AssertNumberOfCalls(t, "LowStock", 2)
}

func TestAlertsNilSafe(t *testing.T) {
	var a *Alerts
	assert.NotPanics(t, func() { a.Check(context.Background(), model.Product{}) })
	assert.NotPanics(t, func() { (&Alerts{}).Check(context.Background(), model.Product{}) })
}

type fakePublisher struct {
	keys   [][]byte
	values [][]byte
	accept bool
}

func (f *fakePublisher) Publish(key, value []byte, _ ...kafkago.Header) bool {
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
	return f.accept
}

func TestKafkaNotifierEnvelope(t *testing.T) {
	pub := &fakePublisher{accept: true}
	n := &KafkaNotifier{Producer: pub, ServiceName: "shop-api"}

	n.LowStock(context.Background(), model.Product{ID: "p1", Name: "Lamp", Stock: 2}, 10)

	require.Len(t, pub.values, 1)
	assert.Equal(t, "p1", string(pub.keys[0]))

	var env Envelope
	require.NoError(t, json.Unmarshal(pub.values[0], &env))
	assert.Equal(t, EventStockLow, env.EventType)
	assert.Equal(t, "shop-api", env.Producer)
	assert.NotEmpty(t, env.EventID)

	var p StockLowPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, StockLowPayload{ProductID: "p1", Name: "Lamp", Stock: 2, Threshold: 10}, p)
}

func TestKafkaNotifierDropIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := &KafkaNotifier{Producer: &fakePublisher{accept: false}, Log: zap.New(core)}

	n.LowStock(context.Background(), model.Product{ID: "p1"}, 10)
	assert.Equal(t, 1, logs.FilterMessage("low stock alert dropped").Len())
}

type fakeDedup struct{ seen map[string]bool }

func (f *fakeDedup) FirstSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func TestAlertHandlerDeduplicates(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := &AlertHandler{
		Dedup:       &fakeDedup{seen: map[string]bool{}},
		DedupTTL:    time.Hour,
		ServiceName: "notifier",
		Log:         zap.New(core),
	}

	pub := &fakePublisher{accept: true}
	(&KafkaNotifier{Producer: pub}).LowStock(context.Background(), model.Product{ID: "p1", Stock: 1}, 5)
	msg := kafkago.Message{Value: pub.values[0]}

	require.NoError(t, h.HandleStockLow(context.Background(), msg))
	require.NoError(t, h.HandleStockLow(context.Background(), msg))

	alerts := logs.FilterMessage("ADMIN ALERT: product stock below threshold")
	require.Equal(t, 1, alerts.Len())
	assert.Equal(t, int64(1), alerts.All()[0].ContextMap()["stock"])
}

func TestAlertHandlerIgnoresGarbage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := &AlertHandler{Log: zap.New(core)}

	require.NoError(t, h.HandleStockLow(context.Background(), kafkago.Message{Value: []byte("not json")}))
	require.NoError(t, h.HandleStockLow(context.Background(), kafkago.Message{Value: []byte(`{"event_type":"Other"}`)}))
	assert.Equal(t, 0, logs.FilterMessage("ADMIN ALERT: product stock below threshold").Len())
}

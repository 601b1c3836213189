package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDropsWhenInboxFull(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "product.stock.low", 1, nil)

	assert.True(t, p.Publish([]byte("p1"), []byte("{}")))
	assert.False(t, p.Publish([]byte("p2"), []byte("{}")), "second message must not block")
}

func TestPublishAfterCloseDrops(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "order.created", 4, nil)
	p.Close()

	assert.NotPanics(t, func() {
		assert.False(t, p.Publish([]byte("o1"), []byte("{}")))
	})
	assert.NotPanics(t, p.Close, "close is idempotent")
}

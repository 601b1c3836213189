package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	type payload struct {
		ProductID string `json:"product_id"`
		Stock     int    `json:"stock"`
	}
	got, err := DecodePayload[payload](json.RawMessage(`{"product_id":"p1","stock":3}`))
	require.NoError(t, err)
	assert.Equal(t, payload{ProductID: "p1", Stock: 3}, got)

	_, err = DecodePayload[payload](json.RawMessage(`{"stock":"three"}`))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	_, err := Encode(make(chan int))
	assert.Error(t, err)

	b, err := Encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))
}

func TestEventHeaders(t *testing.T) {
	m := kafka.Message{Headers: EventHeaders("ProductStockLow", 1)}

	assert.Equal(t, "ProductStockLow", Header(m, HeaderEventType))
	assert.Equal(t, "1", Header(m, HeaderEventVersion))
	assert.Equal(t, "", Header(m, "missing"))
}

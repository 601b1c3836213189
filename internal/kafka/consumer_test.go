package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWorkerForKeepsPartitionOnOneWorker(t *testing.T) {
	for p := 0; p < 16; p++ {
		w := workerFor(p, 3)
		assert.Equal(t, w, workerFor(p, 3))
		assert.GreaterOrEqual(t, w, 0)
		assert.Less(t, w, 3)
	}
	assert.Equal(t, 0, workerFor(5, 1))
}

func TestHandleRetriesUntilSuccess(t *testing.T) {
	c := &Consumer{log: zap.NewNop(), workers: 1}
	errs := make(chan error, 1)
	calls := 0
	h := func(ctx context.Context, m kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("downstream unavailable")
		}
		return nil
	}

	err := c.handle(context.Background(), h, kafka.Message{Partition: 0, Offset: 7}, errs)
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "a failed offset is not skipped")
}

func TestHandleStopsWhenContextEnds(t *testing.T) {
	c := &Consumer{log: zap.NewNop(), workers: 1}
	errs := make(chan error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	h := func(ctx context.Context, m kafka.Message) error { return errors.New("always") }

	err := c.handle(ctx, h, kafka.Message{Offset: 1}, errs)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message was processed and its offset may
// be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	log     *zap.Logger
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{r: r, log: log.With(zap.String("topic", topic)), workers: workers}
}

// Start fetches until ctx is done or the reader fails. Messages of one
// partition always go to the same worker, so they are handled and committed
// in offset order. A failing message is retried with backoff and holds back
// the rest of its partition; nothing past it is committed, and once ctx is
// done it is redelivered on the next start. Workers finish their current
// message before the reader closes.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	jobs := make([]chan kafka.Message, c.workers)
	errs := make(chan error, c.workers)

	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if err := c.handle(ctx, h, m, errs); err != nil {
					// ctx is done; drop the rest uncommitted
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.report(errs, fmt.Errorf("commit offset %d: %w", m.Offset, err))
				}
			}
		}(jobs[i])
	}
	defer func() {
		for _, ch := range jobs {
			close(ch)
		}
		wg.Wait()
		if err := c.r.Close(); err != nil {
			c.log.Warn("kafka reader close", zap.Error(err))
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		select {
		case jobs[workerFor(m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			return nil
		}

		select {
		case e := <-errs:
			c.log.Error("worker error", zap.Error(e))
		default:
		}
	}
}

const (
	retryBase = 200 * time.Millisecond
	retryMax  = 10 * time.Second
)

func workerFor(partition, workers int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % workers
}

// handle runs h until it succeeds. It returns ctx.Err() when ctx ends first.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message, errs chan<- error) error {
	wait := retryBase
	for {
		err := h(ctx, m)
		if err == nil {
			return nil
		}
		c.report(errs, fmt.Errorf("partition %d offset %d: %w", m.Partition, m.Offset, err))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if wait *= 2; wait > retryMax {
			wait = retryMax
		}
	}
}

// report never blocks a worker; surplus errors are logged directly.
func (c *Consumer) report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
		c.log.Error("worker error", zap.Error(err))
	}
}

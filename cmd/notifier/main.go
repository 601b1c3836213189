package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/config"
	"github.com/ariefcatur/go-shop-api/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/logging"
	"github.com/ariefcatur/go-shop-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service := cfg.ServiceName + "-notifier"
	h := &inventory.AlertHandler{
		DedupTTL:    redisx.TTLDedup,
		ServiceName: service,
		Log:         log,
	}
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		h.Dedup = redisx.NewDedup(rdb)
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, inventory.TopicStockLow, cfg.NotifierWorkers, log)
	go func() {
		log.Info("notifier consumer started",
			zap.String("group", cfg.NotifierGroup),
			zap.String("topic", inventory.TopicStockLow),
			zap.Int("workers", cfg.NotifierWorkers))
		if err := cons.Start(ctx, h.HandleStockLow); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
}

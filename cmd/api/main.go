package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/auth"
	"github.com/ariefcatur/go-shop-api/internal/config"
	"github.com/ariefcatur/go-shop-api/internal/httpx"
	"github.com/ariefcatur/go-shop-api/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/logging"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
	"github.com/ariefcatur/go-shop-api/internal/products"
	"github.com/ariefcatur/go-shop-api/internal/redisx"
	"github.com/ariefcatur/go-shop-api/internal/store"
	"github.com/ariefcatur/go-shop-api/internal/store/memory"
	"github.com/ariefcatur/go-shop-api/internal/telemetry"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	// Store
	var db store.DB
	switch cfg.StoreDriver {
	case "memory":
		db = memory.New()
		log.Info("using in-memory store")
	default:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		db = &postgres.DB{Pool: pool}
	}

	// Redis is optional: cache and idempotency keys
	var (
		rdb   *redis.Client
		cache orders.Cache
		idem  httpx.IdempotencyStore
	)
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Warn("redis unreachable, continuing without cache", zap.Error(err))
		} else {
			cache = redisx.NewOrderCache(rdb, redisx.TTLOrderCache, log)
			idem = redisx.NewIdempotency(rdb, redisx.TTLIdempotency)
		}
	}

	// Low-stock alerts go to kafka when brokers are configured
	var notifier inventory.Notifier = inventory.LogNotifier{Log: log}
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, inventory.TopicStockLow, 1024, log)
		prod.Start(ctx)
		notifier = &inventory.KafkaNotifier{Producer: prod, ServiceName: cfg.ServiceName, Log: log}
	}
	alerts := &inventory.Alerts{Threshold: cfg.StockThreshold, Notifier: notifier}

	tokens := &auth.Tokens{
		Secret:        []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	orderOpts := []orders.Option{orders.WithAlerts(alerts), orders.WithLogger(log)}
	if cache != nil {
		orderOpts = append(orderOpts, orders.WithCache(cache))
	}
	api := &httpx.API{
		Guard:       auth.NewGuard(tokens),
		Orders:      orders.NewService(db, inventory.NewLedger(log), orderOpts...),
		Products:    products.NewService(db, alerts, log),
		Users:       users.NewService(db, tokens, log),
		Idempotency: idem,
		Log:         log,
	}
	router := httpx.NewRouter(log)
	api.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	cancel()
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
}

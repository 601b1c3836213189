package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/config"
	"github.com/ariefcatur/go-shop-api/internal/logging"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
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

	if cfg.AdminPassword == "" {
		log.Fatal("ADMIN_PASSWORD is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	svc := users.NewService(&postgres.DB{Pool: pool}, nil, log)
	created, err := svc.SeedAdmin(ctx, users.RegisterInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		log.Fatal("seed admin", zap.Error(err))
	}
	if created {
		log.Info("admin user created", zap.String("email", cfg.AdminEmail))
		return
	}
	log.Info("admin user already exists")
}

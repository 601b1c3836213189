package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORE_DRIVER", "KAFKA_BROKERS", "JWT_ACCESS_TTL", "PRODUCT_STOCK_THRESHOLD"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.Equal(t, 10, cfg.StockThreshold)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("JWT_REFRESH_TTL", "nonsense")
	t.Setenv("PRODUCT_STOCK_THRESHOLD", "3")
	t.Setenv("NOTIFIER_WORKERS", "x")
	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 3, cfg.StockThreshold)
	assert.Equal(t, 4, cfg.NotifierWorkers)
}

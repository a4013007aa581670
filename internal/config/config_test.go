package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5432, cfg.InventoryDBPort)
	assert.Equal(t, 10*time.Second, cfg.CartLockTTL)
	assert.Equal(t, 3*time.Second, cfg.CartLockWait)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("INVENTORY_DB_PORT", "6543")
	t.Setenv("CART_LOCK_WAIT", "750ms")

	cfg := Load()

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 6543, cfg.InventoryDBPort)
	assert.Equal(t, 750*time.Millisecond, cfg.CartLockWait)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("INVENTORY_DB_PORT", "five")
	t.Setenv("CART_LOCK_TTL", "soon")
	t.Setenv("CART_LOCK_WAIT", "-1s")
	t.Setenv("KAFKA_BROKERS", " , ")

	cfg := Load()

	assert.Equal(t, 5432, cfg.InventoryDBPort)
	assert.Equal(t, 10*time.Second, cfg.CartLockTTL)
	assert.Equal(t, 3*time.Second, cfg.CartLockWait)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

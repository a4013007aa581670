package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort string
	Env      string
	LogLevel string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string

	CatalogDBPath         string
	CatalogMigrationsPath string

	InventoryDBHost         string
	InventoryDBPort         int
	InventoryDBUser         string
	InventoryDBPassword     string
	InventoryDBName         string
	InventoryMigrationsPath string

	CartTokenSecret string
	CartLockTTL     time.Duration
	CartLockWait    time.Duration
	CacheTTL        time.Duration

	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

func Load() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "cartmutation"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),

		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "internal/catalog/migrations"),

		InventoryDBHost:         getEnv("INVENTORY_DB_HOST", "localhost"),
		InventoryDBPort:         getEnvInt("INVENTORY_DB_PORT", 5432),
		InventoryDBUser:         getEnv("INVENTORY_DB_USER", "postgres"),
		InventoryDBPassword:     getEnv("INVENTORY_DB_PASSWORD", "postgres"),
		InventoryDBName:         getEnv("INVENTORY_DB_NAME", "inventory"),
		InventoryMigrationsPath: getEnv("INVENTORY_MIGRATIONS_PATH", "internal/inventory/migrations"),

		CartTokenSecret: getEnv("CART_TOKEN_SECRET", "dev-secret-change-me"),
		CartLockTTL:     getEnvDuration("CART_LOCK_TTL", 10*time.Second),
		CartLockWait:    getEnvDuration("CART_LOCK_WAIT", 3*time.Second),
		CacheTTL:        getEnvDuration("CART_CACHE_TTL", 15*time.Minute),

		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

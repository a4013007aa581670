package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/cache"
	"github.com/fjod/go_cart/cartmutation/internal/catalog"
	"github.com/fjod/go_cart/cartmutation/internal/config"
	h "github.com/fjod/go_cart/cartmutation/internal/http"
	"github.com/fjod/go_cart/cartmutation/internal/inventory"
	"github.com/fjod/go_cart/cartmutation/internal/lease"
	"github.com/fjod/go_cart/cartmutation/internal/logger"
	"github.com/fjod/go_cart/cartmutation/internal/poller"
	"github.com/fjod/go_cart/cartmutation/internal/publisher"
	"github.com/fjod/go_cart/cartmutation/internal/repository"
	s "github.com/fjod/go_cart/cartmutation/internal/service"
	"github.com/fjod/go_cart/cartmutation/internal/token"
	"github.com/fjod/go_cart/cartmutation/internal/validator"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logg := logger.New(logger.Options{Service: "cart-mutation", Env: cfg.Env, Level: cfg.LogLevel})

	ctx := context.Background()

	// Carts
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())

	carts := repository.NewMongoRepository(mongoDB)
	if err := carts.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	logg.Info("connected to MongoDB", "db", cfg.MongoDBName)

	// Leases and cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	logg.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	// Catalog
	catalogStore, err := catalog.NewSQLiteStore(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer catalogStore.Close()
	if err := catalogStore.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		log.Fatalf("Failed to migrate catalog: %v", err)
	}
	guardedCatalog := catalog.NewBreakerStore(catalogStore, catalog.DefaultBreakerSettings, logg)

	// Inventory
	invCreds := &inventory.Credentials{
		Host:              cfg.InventoryDBHost,
		Port:              cfg.InventoryDBPort,
		User:              cfg.InventoryDBUser,
		Password:          cfg.InventoryDBPassword,
		DBName:            cfg.InventoryDBName,
		MigrationsDirPath: cfg.InventoryMigrationsPath,
	}
	inventoryStore, err := inventory.NewPostgresStore(invCreds)
	if err != nil {
		log.Fatalf("Failed to connect to inventory database: %v", err)
	}
	defer inventoryStore.Close()
	if err := inventoryStore.RunMigrations(invCreds); err != nil {
		log.Fatalf("Failed to migrate inventory: %v", err)
	}

	hasher, err := token.NewHasher(cfg.CartTokenSecret)
	if err != nil {
		log.Fatalf("Invalid cart token secret: %v", err)
	}

	cartCache := cache.NewRedisCache(redisClient, cfg.CacheTTL)
	events := publisher.NewKafkaPublisher(cfg.KafkaBrokers...)
	defer events.Close()

	service := s.NewCartService(s.Deps{
		Guard:     lease.NewRedisGuard(redisClient, cfg.CartLockTTL),
		Carts:     carts,
		Catalog:   guardedCatalog,
		Validator: validator.New(guardedCatalog, inventoryStore, carts),
		Hasher:    hasher,
		Cache:     cartCache,
		Publisher: events,
		Logger:    logg,
	}, s.Config{LockWait: cfg.CartLockWait})

	// Checkout events
	pollCtx, stopPoller := context.WithCancel(ctx)
	checkoutPoller := poller.NewPoller(cartCache, logg, cfg.KafkaBrokers...)
	go checkoutPoller.Run(pollCtx)

	router := h.NewRouter(h.NewCartHandler(service, cfg.RequestTimeout), logg, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Info("cart mutation service starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", "error", err)
	}
	stopPoller()
	checkoutPoller.Close()

	logg.Info("server exited")
}

package cli

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/cartmutation/internal/catalog"
	"github.com/fjod/go_cart/cartmutation/internal/config"
	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/fjod/go_cart/cartmutation/internal/inventory"
	"github.com/fjod/go_cart/cartmutation/internal/repository"
	"github.com/fjod/go_cart/cartmutation/internal/validator"
	"go.mongodb.org/mongo-driver/mongo"
)

// StoreBackend talks to the same stores as the service.
type StoreBackend struct {
	cfg       *config.Config
	catalog   *catalog.SQLiteStore
	inventory *inventory.PostgresStore
	invCreds  *inventory.Credentials
	mongoDB   *mongo.Database
	validator *validator.Validator
}

func NewStoreBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	cat, err := catalog.NewSQLiteStore(cfg.CatalogDBPath)
	if err != nil {
		return nil, err
	}

	invCreds := &inventory.Credentials{
		Host:              cfg.InventoryDBHost,
		Port:              cfg.InventoryDBPort,
		User:              cfg.InventoryDBUser,
		Password:          cfg.InventoryDBPassword,
		DBName:            cfg.InventoryDBName,
		MigrationsDirPath: cfg.InventoryMigrationsPath,
	}
	inv, err := inventory.NewPostgresStore(invCreds)
	if err != nil {
		cat.Close()
		return nil, err
	}

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		cat.Close()
		inv.Close()
		return nil, err
	}

	return &StoreBackend{
		cfg:       cfg,
		catalog:   cat,
		inventory: inv,
		invCreds:  invCreds,
		mongoDB:   db,
		validator: validator.New(cat, inv, repository.NewMongoRepository(db)),
	}, nil
}

func (b *StoreBackend) Migrate(ctx context.Context) error {
	if err := b.catalog.RunMigrations(b.cfg.CatalogMigrationsPath); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := b.inventory.RunMigrations(b.invCreds); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	if err := repository.NewMongoRepository(b.mongoDB).CreateIndexes(ctx); err != nil {
		return fmt.Errorf("carts: %w", err)
	}
	return nil
}

func (b *StoreBackend) SetStock(ctx context.Context, productID string, inStock int) error {
	return b.inventory.SetStock(ctx, productID, inStock)
}

func (b *StoreBackend) StockLevel(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	return b.inventory.FindByProductID(ctx, productID)
}

func (b *StoreBackend) CheckSoldOut(ctx context.Context, productIDs []string) ([]domain.ProductStatus, error) {
	return b.validator.CheckSoldOut(ctx, productIDs)
}

func (b *StoreBackend) CheckCartStatus(ctx context.Context, cartID string) ([]domain.ItemStatus, error) {
	return b.validator.CheckCartStatus(ctx, cartID)
}

func (b *StoreBackend) Close() error {
	b.catalog.Close()
	b.inventory.Close()
	return b.mongoDB.Client().Disconnect(context.Background())
}

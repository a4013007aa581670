package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (s *SQLiteStore) FindByProductIDs(ctx context.Context, productIDs []string) ([]domain.CatalogProduct, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT product_id, title, is_sold_out, is_visible
		FROM catalog_products
		WHERE product_id IN (` + placeholders(len(productIDs)) + `)
		ORDER BY product_id
	`
	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog products: %w", err)
	}
	defer rows.Close()

	var products []domain.CatalogProduct
	for rows.Next() {
		var p domain.CatalogProduct
		if err := rows.Scan(&p.ProductID, &p.Title, &p.IsSoldOut, &p.IsVisible); err != nil {
			return nil, fmt.Errorf("failed to scan catalog product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (s *SQLiteStore) FindVariants(ctx context.Context, keys []domain.ItemKey) ([]domain.CatalogVariant, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	conds := make([]string, len(keys))
	args := make([]any, 0, 2*len(keys))
	for i, k := range keys {
		conds[i] = "(v.product_id = ? AND v.variant_id = ?)"
		args = append(args, k.ProductID, k.VariantID)
	}

	query := `
		SELECT v.product_id, v.variant_id, p.title, v.price, v.currency_code, v.min_order_quantity
		FROM catalog_variants v
		JOIN catalog_products p ON p.product_id = v.product_id
		WHERE ` + strings.Join(conds, " OR ") + `
		ORDER BY v.product_id, v.variant_id
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.CatalogVariant
	for rows.Next() {
		var (
			v     domain.CatalogVariant
			price decimal.Decimal
		)
		err := rows.Scan(
			&v.ProductID,
			&v.VariantID,
			&v.Title,
			&price,
			&v.Price.CurrencyCode,
			&v.MinOrderQuantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog variant: %w", err)
		}
		v.Price.Amount = price
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return variants, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

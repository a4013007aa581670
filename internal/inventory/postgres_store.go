package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	slog.Info("connected to postgres", "host", cred.Host, "db", cred.DBName)
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{
		MigrationsTable: "inventory_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
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

// FindByProductID returns nil, nil when the product has no inventory record.
func (s *PostgresStore) FindByProductID(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT product_id, in_stock FROM inventory WHERE product_id = $1`, productID,
	).Scan(&rec.ProductID, &rec.InStock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory for %s: %w", productID, err)
	}
	return &rec, nil
}

func (s *PostgresStore) FindByProductIDs(ctx context.Context, productIDs []string) ([]domain.InventoryRecord, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	query := `SELECT product_id, in_stock FROM inventory WHERE product_id = ANY($1) ORDER BY product_id`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var records []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.ProductID, &rec.InStock); err != nil {
			return nil, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// SetStock upserts a product's stock level. Used by the admin seed path.
func (s *PostgresStore) SetStock(ctx context.Context, productID string, inStock int) error {
	query := `INSERT INTO inventory (product_id, in_stock, updated_at)
	          VALUES ($1, $2, NOW())
	          ON CONFLICT (product_id) DO UPDATE SET in_stock = EXCLUDED.in_stock, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, productID, inStock); err != nil {
		return fmt.Errorf("failed to set stock for %s: %w", productID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Package cli implements cartctl, the operator tool for the cart mutation
// service's stores.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/fjod/go_cart/cartmutation/internal/config"
	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/spf13/cobra"
)

// Backend is the set of store operations the commands need.
type Backend interface {
	Migrate(ctx context.Context) error
	SetStock(ctx context.Context, productID string, inStock int) error
	// StockLevel returns nil when the product has no inventory record.
	StockLevel(ctx context.Context, productID string) (*domain.InventoryRecord, error)
	CheckSoldOut(ctx context.Context, productIDs []string) ([]domain.ProductStatus, error)
	CheckCartStatus(ctx context.Context, cartID string) ([]domain.ItemStatus, error)
	Close() error
}

type BackendFactory func(ctx context.Context, cfg *config.Config) (Backend, error)

type RootOptions struct {
	Format string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand(factory BackendFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cartctl",
		Short: "Operate the cart mutation service's stores",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(factory))
	cmd.AddCommand(NewStockCommand(factory))
	cmd.AddCommand(NewSoldOutCommand(opts, factory))
	cmd.AddCommand(NewStatusCommand(opts, factory))

	return cmd
}

// withBackend opens a backend for the duration of fn.
func withBackend(cmd *cobra.Command, factory BackendFactory, fn func(context.Context, Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := factory(ctx, config.Load())
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, b)
}

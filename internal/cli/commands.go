package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewMigrateCommand(factory BackendFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog and inventory schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, factory, func(ctx context.Context, b Backend) error {
				if err := b.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

// StockFile is the YAML document accepted by "stock import".
type StockFile struct {
	Stock []StockEntry `yaml:"stock"`
}

type StockEntry struct {
	ProductID string `yaml:"product_id"`
	InStock   int    `yaml:"in_stock"`
}

func LoadStockFile(r io.Reader) ([]StockEntry, error) {
	var f StockFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse stock file: %w", err)
	}
	for i, e := range f.Stock {
		if e.ProductID == "" {
			return nil, fmt.Errorf("stock entry %d: product_id is required", i)
		}
		if e.InStock < 0 {
			return nil, fmt.Errorf("stock entry %d (%s): in_stock must not be negative", i, e.ProductID)
		}
	}
	return f.Stock, nil
}

func NewStockCommand(factory BackendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Manage inventory stock levels",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <product-id> <in-stock>",
		Short: "Set the stock level of one product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("in-stock must be a non-negative integer, got %q", args[1])
			}
			return withBackend(cmd, factory, func(ctx context.Context, b Backend) error {
				if err := b.SetStock(ctx, args[0], n); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <product-id>",
		Short: "Show the stock level of one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, factory, func(ctx context.Context, b Backend) error {
				rec, err := b.StockLevel(ctx, args[0])
				if err != nil {
					return err
				}
				if rec == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: no inventory record\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", rec.ProductID, rec.InStock)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Set stock levels from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open stock file: %w", err)
			}
			defer f.Close()

			entries, err := LoadStockFile(f)
			if err != nil {
				return err
			}
			return withBackend(cmd, factory, func(ctx context.Context, b Backend) error {
				for _, e := range entries {
					if err := b.SetStock(ctx, e.ProductID, e.InStock); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d stock levels\n", len(entries))
				return nil
			})
		},
	})

	return cmd
}

func NewSoldOutCommand(opts *RootOptions, factory BackendFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "sold-out <product-id>...",
		Short: "Report products that cannot be bought",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, factory, func(ctx context.Context, b Backend) error {
				statuses, err := b.CheckSoldOut(ctx, args)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), statuses)
				}
				if len(statuses) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "all products available")
				}
				for _, s := range statuses {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.ProductID, s.Message)
				}
				return nil
			})
		},
	}
}

func NewStatusCommand(opts *RootOptions, factory BackendFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status <cart-id>",
		Short: "Report cart items whose product cannot be bought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, factory, func(ctx context.Context, b Backend) error {
				statuses, err := b.CheckCartStatus(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), statuses)
				}
				if len(statuses) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no problems found")
				}
				for _, s := range statuses {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.ItemID, s.ProductID, s.Message)
				}
				return nil
			})
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

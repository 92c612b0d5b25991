package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-inventory/internal/models"
	"go-inventory/internal/services"
)

func NewLoadItemsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load-items <file.json>",
		Short: "Bulk load catalog items from a JSON file",
		Long: `Bulk load catalog items from a JSON array of objects:

  [{"name": "Laptop", "price": "999.99", "quantity": 10}]

All items are inserted in one transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("open items file: %w", err)
			}
			defer f.Close()

			st, err := openStore(rootOpts.Config.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := services.NewItemService(st, rootOpts.Logger).LoadItems(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully loaded %d items\n", n)
			return nil
		},
	}
}

func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "items",
		Short: "List items with stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts.Config.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			items, err := services.NewItemService(st, rootOpts.Logger).ListAvailableItems(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tQUANTITY")
			for _, it := range items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", it.ID, it.Name, it.Price.StringFixed(models.MoneyPlaces), it.Quantity)
			}
			return w.Flush()
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/client"
	"github.com/evcraddock/homenest/internal/property"
)

func newListCmd() *cobra.Command {
	var search, category, sortMode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		Long:  "List all properties, optionally searched by name, city or area, filtered by category and sorted.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			crit, err := parseCriteria(search, category, sortMode)
			if err != nil {
				return err
			}
			return runList(cmd, a, crit)
		}),
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "match name, city or area (case-insensitive)")
	cmd.Flags().StringVarP(&category, "category", "c", "All", "All, Apartment, House/Villa, Commercial or Land/Plot")
	cmd.Flags().StringVar(&sortMode, "sort", string(property.SortNewest), "newest, oldest, price-low or price-high")

	return cmd
}

func parseCriteria(search, category, sortMode string) (property.Criteria, error) {
	cat, err := property.ParseCategory(category)
	if err != nil {
		return property.Criteria{}, err
	}
	mode, err := property.ParseSortMode(sortMode)
	if err != nil {
		return property.Criteria{}, err
	}
	return property.Criteria{Query: search, Category: cat, Sort: mode}, nil
}

func runList(cmd *cobra.Command, a *app, crit property.Criteria) error {
	res := client.Load(cmd.Context(), a.api.ListProperties)
	if res.Failed() {
		return fmt.Errorf("loading properties: %w", res.Err)
	}

	props := property.Apply(res.Data, crit)

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, props)
	}
	return printPropertyTable(out, props)
}

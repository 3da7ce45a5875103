package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/client"
	"github.com/evcraddock/homenest/internal/property"
	"github.com/evcraddock/homenest/internal/review"
)

func newMineCmd() *cobra.Command {
	var sortMode string

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List the properties you posted",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			mode, err := property.ParseSortMode(sortMode)
			if err != nil {
				return err
			}
			return runMine(cmd, a, mode)
		}),
	}

	cmd.Flags().StringVar(&sortMode, "sort", string(property.SortNewest), "newest, oldest, price-low or price-high")
	cmd.AddCommand(newMineRatingsCmd())

	return cmd
}

func runMine(cmd *cobra.Command, a *app, mode property.SortMode) error {
	id, err := a.requireIdentity()
	if err != nil {
		return err
	}

	res := client.Load(cmd.Context(), func(ctx context.Context) ([]*property.Property, error) {
		return a.api.MyProperties(ctx, id.Email)
	})
	if res.Failed() {
		return fmt.Errorf("loading your properties: %w", res.Err)
	}
	props := property.Sort(res.Data, mode)

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, props)
	}
	return printPropertyTable(out, props)
}

func newMineRatingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "List the property reviews you wrote",
		Args:  cobra.NoArgs,
		RunE:  withApp(runMineRatings),
	}
}

func runMineRatings(cmd *cobra.Command, args []string, a *app) error {
	id, err := a.requireIdentity()
	if err != nil {
		return err
	}

	res := client.Load(cmd.Context(), func(ctx context.Context) ([]*review.Review, error) {
		return a.api.MyRatings(ctx, id.Email)
	})
	if res.Failed() {
		return fmt.Errorf("loading your ratings: %w", res.Err)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, res.Data)
	}
	printReviewList(out, res.Data)
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/homenest/internal/client"
	"github.com/evcraddock/homenest/internal/property"
	"github.com/evcraddock/homenest/internal/review"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show property details",
		Long:  "Show full details for a property, including its reviews.",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runShow),
	}
}

// showResponse is the JSON shape of the show command.
type showResponse struct {
	Property      *property.Property `json:"property"`
	Reviews       []*review.Review   `json:"reviews"`
	AverageRating float64            `json:"average_rating"`
}

func runShow(cmd *cobra.Command, args []string, a *app) error {
	id := args[0]
	ctx := cmd.Context()

	// The reviews are secondary: the property still shows if they fail.
	prop := client.Pending[*property.Property]()
	reviews := client.Pending[[]*review.Review]()
	var g errgroup.Group
	g.Go(func() error {
		prop = client.Load(ctx, func(ctx context.Context) (*property.Property, error) {
			return a.api.GetProperty(ctx, id)
		})
		return nil
	})
	g.Go(func() error {
		reviews = client.Load(ctx, a.api.PropertyReviews(id).List)
		return nil
	})
	_ = g.Wait()

	if prop.Failed() {
		if errors.Is(prop.Err, client.ErrNotFound) {
			return fmt.Errorf("property %s not found (run 'hn list' to see available listings)", id)
		}
		return prop.Err
	}
	if reviews.Failed() {
		slog.Warn("loading reviews", "property", id, "error", reviews.Err)
	}

	resp := showResponse{Property: prop.Data, Reviews: reviews.Data, AverageRating: review.Average(reviews.Data)}
	if resp.Reviews == nil {
		resp.Reviews = []*review.Review{}
	}
	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, resp)
	}

	printPropertySummary(out, prop.Data)
	fmt.Fprintln(out)
	switch {
	case reviews.Failed():
		fmt.Fprintln(out, "Reviews could not be loaded.")
		return nil
	case len(reviews.Data) > 0:
		fmt.Fprintf(out, "Reviews (%d, average %.1f):\n", len(reviews.Data), resp.AverageRating)
	}
	printReviewList(out, reviews.Data)
	return nil
}

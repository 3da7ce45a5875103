package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/client"
	"github.com/evcraddock/homenest/internal/favorite"
)

func newFavCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fav",
		Short: "Manage favorite properties",
		Long:  "Save properties to a local favorites list.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <property-id>",
			Short: "Save a property to favorites",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runFavAdd),
		},
		&cobra.Command{
			Use:   "remove <property-id>",
			Short: "Remove a property from favorites",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runFavRemove),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List favorites",
			Args:  cobra.NoArgs,
			RunE:  withApp(runFavList),
		},
	)

	return cmd
}

func runFavAdd(cmd *cobra.Command, args []string, a *app) error {
	ctx := cmd.Context()
	p, err := a.api.GetProperty(ctx, args[0])
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("property %s not found (run 'hn list' to see available listings)", args[0])
	}
	if err != nil {
		return err
	}

	added, err := a.favorites.Add(ctx, favorite.FromProperty(p, time.Now()))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, map[string]interface{}{"id": p.ID, "added": added})
	}
	if !added {
		fmt.Fprintf(out, "%s is already in your favorites.\n", p.Name)
		return nil
	}
	fmt.Fprintf(out, "Saved %s to favorites.\n", p.Name)
	return nil
}

func runFavRemove(cmd *cobra.Command, args []string, a *app) error {
	removed, err := a.favorites.Remove(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, map[string]interface{}{"id": args[0], "removed": removed})
	}
	if !removed {
		fmt.Fprintf(out, "Property %s was not in your favorites.\n", args[0])
		return nil
	}
	fmt.Fprintf(out, "Removed property %s from favorites.\n", args[0])
	return nil
}

func runFavList(cmd *cobra.Command, args []string, a *app) error {
	favs, err := a.favorites.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, favs)
	}
	return printFavorites(out, favs)
}

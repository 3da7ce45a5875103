package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/client"
	"github.com/evcraddock/homenest/internal/property"
)

func newUpdateCmd() *cobra.Command {
	var f propertyFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update one of your properties",
		Long:  "Update a listing. Only the fields given as flags change; the rest keep their current values.",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runUpdate(cmd, a, args[0], &f)
		}),
	}
	f.register(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, a *app, id string, f *propertyFlags) error {
	if _, err := a.requireIdentity(); err != nil {
		return err
	}
	ctx := cmd.Context()

	current, err := a.api.GetProperty(ctx, id)
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("property %s not found (run 'hn mine' to see your listings)", id)
	}
	if err != nil {
		return err
	}

	in := property.InputFrom(current)
	if err := f.apply(cmd, &in); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	p, err := a.api.UpdateProperty(ctx, id, in)
	if err != nil {
		return fmt.Errorf("updating property: %w", err)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, p)
	}
	fmt.Fprintf(out, "Property %s updated.\n\n", p.ID)
	printPropertySummary(out, p)
	return nil
}

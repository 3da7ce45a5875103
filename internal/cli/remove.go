package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one of your properties",
		Long:  "Remove a listing after confirmation.",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runRemove(cmd, a, args[0], yes)
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func runRemove(cmd *cobra.Command, a *app, id string, yes bool) error {
	if _, err := a.requireIdentity(); err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	ok, err := newPrompter(cmd).confirmer(yes)(ctx, fmt.Sprintf("Remove property %s?", id))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	if err := a.api.DeleteProperty(ctx, id); err != nil {
		return fmt.Errorf("removing property: %w", err)
	}

	if isJSON() {
		return printJSON(out, map[string]interface{}{
			"id":      id,
			"removed": true,
		})
	}

	fmt.Fprintf(out, "Property %s removed.\n", id)
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Long:  "Forgets the stored session. The remembered email, if any, is kept.",
		Args:  cobra.NoArgs,
		RunE:  withApp(runLogout),
	}
}

func runLogout(cmd *cobra.Command, args []string, a *app) error {
	out := cmd.OutOrStdout()
	if a.session == nil || a.session.Current() == nil {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}

	a.signingOut = true
	if err := a.session.SignOut(cmd.Context()); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}

	fmt.Fprintln(out, "✓ Signed out.")
	return nil
}

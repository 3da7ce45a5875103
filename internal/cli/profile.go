package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/auth"
)

func newProfileCmd() *cobra.Command {
	var name, photo string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Long:  "Without flags, shows your profile as held by the identity provider. With --name or --photo, updates it.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runProfile(cmd, a, name, photo)
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&photo, "photo", "", "new profile photo URL")

	return cmd
}

func runProfile(cmd *cobra.Command, a *app, name, photo string) error {
	if _, err := a.requireIdentity(); err != nil {
		return err
	}
	ctx := cmd.Context()

	var (
		id  *auth.Identity
		err error
	)
	if name != "" || photo != "" {
		id, err = a.session.UpdateProfile(ctx, name, photo)
	} else {
		id, err = a.session.Refreshed(ctx)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, id)
	}
	fmt.Fprintf(out, "Name:  %s\n", id.Name())
	fmt.Fprintf(out, "Email: %s\n", id.Email)
	if id.PhotoURL != "" {
		fmt.Fprintf(out, "Photo: %s\n", id.PhotoURL)
	}
	return nil
}

func newResetPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runResetPassword(cmd, a, email)
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (default: remembered email)")

	return cmd
}

func runResetPassword(cmd *cobra.Command, a *app, email string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if email == "" {
		if email, err = a.favorites.RememberedEmail(ctx); err != nil {
			return err
		}
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email)")
	}

	if err := s.ResetPassword(ctx, email); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Password reset email sent to %s.\n", email)
	return nil
}

package cli

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/auth"
)

func newLoginCmd() *cobra.Command {
	var (
		email, password, googleToken string
		remember                     bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Long:  "Sign in with email and password, or with a Google ID token. Prompts for anything not given as a flag.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runLogin(cmd, a, email, password, googleToken, remember)
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (default: remembered email)")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&googleToken, "google-id-token", "", "sign in with a Google ID token instead of a password")
	cmd.Flags().BoolVar(&remember, "remember", false, "remember the email for next time")

	return cmd
}

func runLogin(cmd *cobra.Command, a *app, email, password, googleToken string, remember bool) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var id *auth.Identity
	if googleToken != "" {
		id, err = s.SignInWithGoogle(ctx, googleToken)
		if err != nil {
			return err
		}
	} else {
		p := newPrompter(cmd)
		if email == "" {
			remembered, err := a.favorites.RememberedEmail(ctx)
			if err != nil {
				return err
			}
			label := "Email: "
			if remembered != "" {
				label = fmt.Sprintf("Email [%s]: ", remembered)
			}
			if email, err = p.ask(label); err != nil {
				return err
			}
			if email == "" {
				email = remembered
			}
		}
		if password == "" {
			if password, err = p.ask("Password: "); err != nil {
				return err
			}
		}
		id, err = s.SignIn(ctx, email, password)
		if err != nil {
			return err
		}
	}

	if err := a.favorites.SetRememberedEmail(ctx, id.Email, remember); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, id)
	}
	fmt.Fprintf(out, "✓ Signed in as %s.\n", id.Name())
	return nil
}

func newSignupCmd() *cobra.Command {
	var email, password, name, photo string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runSignup(cmd, a, email, password, name, photo)
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&photo, "photo", "", "profile photo URL")

	return cmd
}

func runSignup(cmd *cobra.Command, a *app, email, password, name, photo string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}

	p := newPrompter(cmd)
	if email == "" {
		if email, err = p.ask("Email: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = p.ask("Password: "); err != nil {
			return err
		}
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	id, err := s.SignUp(cmd.Context(), email, password, name, photo)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, id)
	}
	fmt.Fprintf(out, "✓ Account created. Signed in as %s.\n", id.Name())
	return nil
}

// validatePassword applies the sign-up password rules: at least six
// characters with an upper and a lower case letter.
func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	var upper, lower bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		}
	}
	if !upper || !lower {
		return fmt.Errorf("password must contain an upper case and a lower case letter")
	}
	return nil
}

// Package cli defines the cobra command tree for homenest.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/auth"
	"github.com/evcraddock/homenest/internal/client"
	"github.com/evcraddock/homenest/internal/db"
	"github.com/evcraddock/homenest/internal/favorite"
	"github.com/evcraddock/homenest/internal/kv"
	"github.com/evcraddock/homenest/internal/logging"
	"github.com/evcraddock/homenest/internal/review"
)

var (
	flagFormat string
	flagDB     string
	flagDev    bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hn",
		Short:         "Browse and review property listings",
		Long:          "A client for the HomeNest listing service. Search and filter listings, post your own, review properties and keep a local list of favorites.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(flagDev || os.Getenv("HN_DEV_MODE") == "true")
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.homenest/hn.db)")
	root.PersistentFlags().BoolVar(&flagDev, "dev", false, "verbose, human-readable logging")

	root.AddCommand(
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newUpdateCmd(),
		newRemoveCmd(),
		newMineCmd(),
		newReviewCmd(),
		newTestimonialCmd(),
		newTestimonialsCmd(),
		newFavCmd(),
		newSignupCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newProfileCmd(),
		newResetPasswordCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// app holds the services a command needs.
type app struct {
	settings  settings
	db        *sql.DB
	store     kv.Store
	session   *auth.Session // nil when no identity API key is configured
	api       *client.Client
	favorites *favorite.Store

	// signingOut is set by logout so the expiry notice stays quiet.
	signingOut bool
}

// newApp opens local state and wires the API and identity clients.
func newApp(ctx context.Context) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(s.DBPath)
	if err != nil {
		return nil, err
	}
	store := kv.NewSQLite(database)

	a := &app{
		settings:  s,
		db:        database,
		store:     store,
		favorites: favorite.NewStore(store),
	}

	opts := []client.Option{client.WithRateLimit(s.RateLimit)}
	if s.IdentityAPIKey != "" {
		provider, err := auth.NewClient(auth.Config{
			APIKey:      s.IdentityAPIKey,
			IdentityURL: s.IdentityURL,
			TokenURL:    s.TokenURL,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		a.session, err = auth.NewSession(ctx, provider, store)
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, client.WithTokenSource(a.session))
	}
	a.api = client.New(s.ServerURL, opts...)

	return a, nil
}

func (a *app) close() {
	closeDB(a.db)
}

// requireSession returns the session or explains how to configure one.
func (a *app) requireSession() (*auth.Session, error) {
	if a.session == nil {
		return nil, fmt.Errorf("identity provider not configured (set HN_IDENTITY_API_KEY or identity_api_key in ~/.config/hn/config.yaml)")
	}
	return a.session, nil
}

// requireIdentity returns the signed-in user.
func (a *app) requireIdentity() (*auth.Identity, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	id := s.Current()
	if id == nil {
		return nil, fmt.Errorf("%w: run 'hn login' first", auth.ErrNoSession)
	}
	return id, nil
}

// withApp wraps a command body that needs an app.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		defer a.watchSession(cmd)()
		return fn(cmd, args, a)
	}
}

// watchSession tells the user when the session ends without a logout,
// which happens when the provider rejects a token refresh. It returns the
// function that stops watching.
func (a *app) watchSession(cmd *cobra.Command) func() {
	if a.session == nil || a.session.Current() == nil {
		return func() {}
	}
	return a.session.Subscribe(func(id *auth.Identity) {
		if id == nil && !a.signingOut {
			fmt.Fprintln(cmd.ErrOrStderr(), "Your session has expired. Run 'hn login' to sign in again.")
		}
	})
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

// prompter reads answers from the command's input.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

// ask writes label and reads one trimmed line.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// confirmer returns a yes/no question asker. assumeYes skips the question.
func (p *prompter) confirmer(assumeYes bool) review.ConfirmFunc {
	return func(ctx context.Context, question string) (bool, error) {
		if assumeYes {
			return true, nil
		}
		answer, err := p.ask(question + " [y/N]: ")
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(answer)
		return answer == "y" || answer == "yes", nil
	}
}

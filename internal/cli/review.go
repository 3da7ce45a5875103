package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/review"
)

// reviewSubject describes one kind of reviewable thing for the command
// builders below.
type reviewSubject struct {
	use      string // command name
	argsUse  string // positional args in usage, may be empty
	args     cobra.PositionalArgs
	noun     string // "review" or "testimonial"
	withRole bool
	store    func(a *app, args []string) review.Store
	hint     func(sub string, args []string) string // command line for sub, "" for the base command
}

type reviewFlags struct {
	rating int
	text   string
	role   string
	yes    bool
}

func (f *reviewFlags) register(cmd *cobra.Command, withRole bool) {
	cmd.Flags().IntVar(&f.rating, "rating", 0, fmt.Sprintf("rating from %d to %d", review.MinRating, review.MaxRating))
	cmd.Flags().StringVar(&f.text, "text", "", fmt.Sprintf("review text (at least %d characters)", review.MinTextLength))
	if withRole {
		cmd.Flags().StringVar(&f.role, "role", "", "your role, e.g. Buyer or Tenant")
	}
}

// overlay returns d with the flags the user set applied.
func (f *reviewFlags) overlay(cmd *cobra.Command, d review.Draft) (review.Draft, bool) {
	changed := false
	if cmd.Flags().Changed("rating") {
		d.Rating, changed = f.rating, true
	}
	if cmd.Flags().Changed("text") {
		d.Text, changed = f.text, true
	}
	if cmd.Flags().Lookup("role") != nil && cmd.Flags().Changed("role") {
		d.Role, changed = f.role, true
	}
	return d, changed
}

func newReviewCmd() *cobra.Command {
	return newReviewCommands(reviewSubject{
		use:     "review",
		argsUse: "<property-id>",
		args:    cobra.ExactArgs(1),
		noun:    "review",
		store: func(a *app, args []string) review.Store {
			return a.api.PropertyReviews(args[0])
		},
		hint: func(sub string, args []string) string {
			if sub != "" {
				return "hn review " + sub + " " + args[0]
			}
			return "hn review " + args[0]
		},
	})
}

func newTestimonialCmd() *cobra.Command {
	return newReviewCommands(reviewSubject{
		use:      "testimonial",
		args:     cobra.NoArgs,
		noun:     "testimonial",
		withRole: true,
		store: func(a *app, args []string) review.Store {
			return a.api.Testimonials()
		},
		hint: func(sub string, args []string) string {
			if sub != "" {
				return "hn testimonial " + sub
			}
			return "hn testimonial"
		},
	})
}

func newTestimonialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "testimonials",
		Short: "List site testimonials",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			reviews, err := a.api.Testimonials().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading testimonials: %w", err)
			}
			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, reviews)
			}
			printReviewList(out, reviews)
			return nil
		}),
	}
}

func newReviewCommands(s reviewSubject) *cobra.Command {
	var f reviewFlags
	use := s.use
	if s.argsUse != "" {
		use += " " + s.argsUse
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Show or write your %s", s.noun),
		Long: fmt.Sprintf("Without --rating or --text, shows all %ss and your own. "+
			"With them, writes your %s. Each user may write only one; use '%s edit' to change it.",
			s.noun, s.noun, s.use),
		Args: s.args,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runReview(cmd, a, s, args, &f)
		}),
	}
	f.register(cmd, s.withRole)

	cmd.AddCommand(newReviewEditCmd(s), newReviewDeleteCmd(s))
	return cmd
}

func newReviewEditCmd(s reviewSubject) *cobra.Command {
	var f reviewFlags

	cmd := &cobra.Command{
		Use:   "edit " + s.argsUse,
		Short: fmt.Sprintf("Change your %s", s.noun),
		Args:  s.args,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runReviewEdit(cmd, a, s, args, &f)
		}),
	}
	f.register(cmd, s.withRole)

	return cmd
}

func newReviewDeleteCmd(s reviewSubject) *cobra.Command {
	var f reviewFlags

	cmd := &cobra.Command{
		Use:   "delete " + s.argsUse,
		Short: fmt.Sprintf("Delete your %s", s.noun),
		Args:  s.args,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runReviewDelete(cmd, a, s, args, f.yes)
		}),
	}
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

// loadFlow builds a flow for the signed-in user (if any) and runs the
// existence check.
func loadFlow(ctx context.Context, a *app, store review.Store) (*review.Flow, error) {
	var author review.Author
	if a.session != nil {
		if id := a.session.Current(); id != nil {
			author = review.Author{Name: id.Name(), Email: id.Email}
		}
	}
	flow := review.NewFlow(store, author)
	return flow, flow.Load(ctx)
}

// reviewView is the JSON shape of the review commands.
type reviewView struct {
	State   string           `json:"state"`
	Mine    *review.Review   `json:"mine"`
	Reviews []*review.Review `json:"reviews"`
	Average float64          `json:"average_rating"`
}

func runReview(cmd *cobra.Command, a *app, s reviewSubject, args []string, f *reviewFlags) error {
	ctx := cmd.Context()
	store := s.store(a, args)
	draft, write := f.overlay(cmd, review.Draft{})

	flow, loadErr := loadFlow(ctx, a, store)
	if !write {
		if loadErr != nil {
			return loadErr
		}
		return printFlow(cmd, s, args, flow)
	}

	if _, err := a.requireIdentity(); err != nil {
		return err
	}
	if loadErr != nil {
		slog.Warn("could not confirm existing "+s.noun+", submitting as new", "error", loadErr)
	}
	if flow.State() == review.StateViewing {
		return fmt.Errorf("you already wrote a %s for the %s; use '%s' to change it",
			s.noun, store.Subject(), s.hint("edit", args))
	}

	saved, err := flow.Submit(ctx, draft)
	if err != nil {
		return describeReviewError(err, s, args)
	}
	return printSaved(cmd, s, saved, "saved")
}

func runReviewEdit(cmd *cobra.Command, a *app, s reviewSubject, args []string, f *reviewFlags) error {
	if _, err := a.requireIdentity(); err != nil {
		return err
	}
	ctx := cmd.Context()

	flow, err := loadFlow(ctx, a, s.store(a, args))
	if err != nil {
		return err
	}
	if err := flow.Edit(); err != nil {
		if errors.Is(err, review.ErrInvalidTransition) {
			return fmt.Errorf("you have not written a %s yet; use '%s --rating N --text ...'", s.noun, s.hint("", args))
		}
		return err
	}

	draft, changed := f.overlay(cmd, flow.Draft())
	if !changed {
		if err := flow.Cancel(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to change.")
		return nil
	}

	saved, err := flow.Submit(ctx, draft)
	if err != nil {
		return describeReviewError(err, s, args)
	}
	return printSaved(cmd, s, saved, "updated")
}

func runReviewDelete(cmd *cobra.Command, a *app, s reviewSubject, args []string, yes bool) error {
	if _, err := a.requireIdentity(); err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	flow, err := loadFlow(ctx, a, s.store(a, args))
	if err != nil {
		return err
	}
	if flow.State() != review.StateViewing {
		return fmt.Errorf("you have no %s to delete", s.noun)
	}

	deleted, err := flow.Delete(ctx, newPrompter(cmd).confirmer(yes))
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	if isJSON() {
		return printJSON(out, map[string]interface{}{"deleted": true})
	}
	fmt.Fprintf(out, "Your %s was deleted.\n", s.noun)
	return nil
}

func describeReviewError(err error, s reviewSubject, args []string) error {
	var verr *review.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.Is(err, review.ErrDuplicate):
		return fmt.Errorf("you already wrote a %s; use '%s' to change it", s.noun, s.hint("edit", args))
	case errors.Is(err, review.ErrNoAuthor):
		return fmt.Errorf("%w: run 'hn login' first", err)
	}
	return err
}

func printFlow(cmd *cobra.Command, s reviewSubject, args []string, flow *review.Flow) error {
	reviews := flow.Reviews()
	view := reviewView{
		State:   flow.State().String(),
		Mine:    flow.Existing(),
		Reviews: reviews,
		Average: review.Average(reviews),
	}
	if view.Reviews == nil {
		view.Reviews = []*review.Review{}
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, view)
	}

	if len(reviews) > 0 {
		fmt.Fprintf(out, "%d %ss, average %.1f\n\n", len(reviews), s.noun, view.Average)
	}
	printReviewList(out, reviews)

	switch {
	case view.Mine != nil:
		fmt.Fprintf(out, "Your %s:\n", s.noun)
		printReview(out, view.Mine)
	default:
		fmt.Fprintf(out, "You have not written a %s. Use '%s --rating N --text ...' to add one.\n", s.noun, s.hint("", args))
	}
	return nil
}

func printSaved(cmd *cobra.Command, s reviewSubject, r *review.Review, verb string) error {
	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, r)
	}
	fmt.Fprintf(out, "Your %s was %s.\n", s.noun, verb)
	printReview(out, r)
	return nil
}

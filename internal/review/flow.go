package review

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// State is where a Flow is in the review lifecycle.
type State int

const (
	StateNoReview State = iota
	StateViewing
	StateEditing
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateNoReview:
		return "no-review"
	case StateViewing:
		return "viewing-existing"
	case StateEditing:
		return "editing-existing"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrNotReady          = errors.New("existence check has not completed")
	ErrBusy              = errors.New("a review request is already in flight")
	ErrInvalidTransition = errors.New("action not allowed in current review state")
	ErrDuplicate         = errors.New("a review by this author already exists")
	ErrNoAuthor          = errors.New("sign in to write a review")
)

// Store is the backend for one subject's reviews.
type Store interface {
	// Subject returns what the reviews in this store are attached to.
	Subject() Subject
	// List returns every review for the subject.
	List(ctx context.Context) ([]*Review, error)
	// Existing returns the review written by email, or nil if there is none.
	Existing(ctx context.Context, email string) (*Review, error)
	Create(ctx context.Context, author Author, d Draft) (*Review, error)
	Update(ctx context.Context, id string, author Author, d Draft) (*Review, error)
	Delete(ctx context.Context, id string) error
}

// ListLookup is implemented by stores whose Existing only searches List.
// Load then fetches the list once and searches it itself.
type ListLookup interface {
	ExistingFromList() bool
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Flow reconciles one author's review for one subject with the backend.
// Whether a submit creates or updates depends only on the review found by
// the last existence check or returned by the last successful write.
type Flow struct {
	store  Store
	author Author

	mu       sync.Mutex
	state    State
	checked  bool
	existing *Review
	draft    Draft
	reviews  []*Review
	// writes counts submits and deletes started; a Load that overlaps one
	// discards its results.
	writes uint64
}

// NewFlow creates a flow for author against store. Call Load before Submit.
func NewFlow(store Store, author Author) *Flow {
	return &Flow{store: store, author: author, state: StateNoReview}
}

// Load runs the existence check and fetches the subject's reviews. Once it
// returns, submission is enabled even if the check failed. Results are
// dropped if a submit or delete started while Load was running, since the
// write already knows better.
func (f *Flow) Load(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return ErrBusy
	}
	writes := f.writes
	f.mu.Unlock()

	reviews, existing, listErr, checkErr := f.fetch(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writes != writes || f.state == StateSubmitting {
		return nil
	}

	f.checked = true
	if listErr == nil {
		f.reviews = reviews
	}
	if checkErr == nil {
		f.setExisting(existing)
	}

	var errs []error
	if checkErr != nil {
		errs = append(errs, fmt.Errorf("checking for existing review: %w", checkErr))
	}
	if listErr != nil {
		errs = append(errs, fmt.Errorf("listing reviews: %w", listErr))
	}
	return errors.Join(errs...)
}

// fetch lists the subject's reviews and looks up the author's own, in
// parallel unless the store answers lookups from the list.
func (f *Flow) fetch(ctx context.Context) (reviews []*Review, existing *Review, listErr, checkErr error) {
	if ll, ok := f.store.(ListLookup); ok && ll.ExistingFromList() {
		reviews, listErr = f.store.List(ctx)
		if f.author.Email == "" {
			return reviews, nil, listErr, nil
		}
		if listErr != nil {
			return nil, nil, listErr, listErr
		}
		return reviews, FindByAuthor(reviews, f.author.Email), nil, nil
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		reviews, listErr = f.store.List(ctx)
		return nil
	})
	if f.author.Email != "" {
		g.Go(func() error {
			existing, checkErr = f.store.Existing(ctx, f.author.Email)
			return nil
		})
	}
	_ = g.Wait()
	return reviews, existing, listErr, checkErr
}

// Ready reports whether the existence check has finished.
func (f *Flow) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checked
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Existing returns the author's review as last confirmed by the server.
func (f *Flow) Existing() *Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing
}

// Draft returns the values currently shown in the edit form.
func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Reviews returns the cached reviews for the subject.
func (f *Flow) Reviews() []*Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.reviews)
}

// Edit moves from viewing the existing review to editing it.
func (f *Flow) Edit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateViewing {
		return fmt.Errorf("edit from %s: %w", f.state, ErrInvalidTransition)
	}
	f.draft = DraftFrom(f.existing)
	f.state = StateEditing
	return nil
}

// Cancel discards edits and restores the last known server values.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateEditing {
		return fmt.Errorf("cancel from %s: %w", f.state, ErrInvalidTransition)
	}
	f.draft = DraftFrom(f.existing)
	f.state = StateViewing
	return nil
}

// Submit validates d locally and then creates or updates the author's
// review. On failure the flow returns to the state it was in before.
func (f *Flow) Submit(ctx context.Context, d Draft) (*Review, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	if !f.checked {
		f.mu.Unlock()
		return nil, ErrNotReady
	}
	if f.author.Email == "" {
		f.mu.Unlock()
		return nil, ErrNoAuthor
	}
	if err := d.Validate(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	prev := f.state
	existing := f.existing
	f.draft = d
	f.state = StateSubmitting
	f.writes++
	f.mu.Unlock()

	var (
		saved *Review
		err   error
	)
	if existing != nil {
		saved, err = f.store.Update(ctx, existing.ID, f.author, d)
	} else {
		saved, err = f.store.Create(ctx, f.author, d)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = prev
		if existing != nil {
			return nil, fmt.Errorf("updating review: %w", err)
		}
		return nil, fmt.Errorf("creating review: %w", err)
	}

	f.setExisting(saved)
	f.upsertCached(saved)
	return saved, nil
}

// Delete removes the author's review after c confirms. A declined
// confirmation returns false and leaves the flow untouched.
func (f *Flow) Delete(ctx context.Context, c Confirmer) (bool, error) {
	f.mu.Lock()
	if f.state != StateViewing {
		state := f.state
		f.mu.Unlock()
		return false, fmt.Errorf("delete from %s: %w", state, ErrInvalidTransition)
	}
	existing := f.existing
	f.mu.Unlock()

	ok, err := c.Confirm(ctx, fmt.Sprintf("Delete your review of %s?", f.store.Subject()))
	if err != nil {
		return false, fmt.Errorf("confirming delete: %w", err)
	}
	if !ok {
		return false, nil
	}

	f.mu.Lock()
	if f.state != StateViewing || f.existing != existing {
		f.mu.Unlock()
		return false, fmt.Errorf("review changed while confirming: %w", ErrInvalidTransition)
	}
	f.state = StateSubmitting
	f.writes++
	f.mu.Unlock()

	err = f.store.Delete(ctx, existing.ID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateViewing
		return false, fmt.Errorf("deleting review: %w", err)
	}

	f.reviews = slices.DeleteFunc(slices.Clone(f.reviews), func(r *Review) bool { return r.ID == existing.ID })
	f.setExisting(nil)
	return true, nil
}

// setExisting must be called with mu held.
func (f *Flow) setExisting(r *Review) {
	f.existing = r
	if r == nil {
		f.state = StateNoReview
		f.draft = Draft{}
		return
	}
	f.state = StateViewing
	f.draft = DraftFrom(r)
}

// upsertCached must be called with mu held.
func (f *Flow) upsertCached(r *Review) {
	reviews := slices.Clone(f.reviews)
	for i, cur := range reviews {
		if cur.ID == r.ID {
			reviews[i] = r
			f.reviews = reviews
			return
		}
	}
	f.reviews = append(reviews, r)
}

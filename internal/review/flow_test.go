package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store that counts backend calls.
type memStore struct {
	mu      sync.Mutex
	subject Subject
	reviews []*Review
	nextID  int

	calls map[string]int

	listErr     error
	existingErr error
	writeErr    error

	// block, when set, stalls Create/Update until closed.
	block chan struct{}
	// lookupGate, when set, stalls Existing until closed; lookupEntered
	// receives a value as each stalled call begins.
	lookupGate    chan struct{}
	lookupEntered chan struct{}
}

func newMemStore(reviews ...*Review) *memStore {
	return &memStore{
		subject: PropertySubject("p1"),
		reviews: reviews,
		nextID:  100,
		calls:   make(map[string]int),
	}
}

func (s *memStore) Subject() Subject { return s.subject }

func (s *memStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *memStore) List(ctx context.Context) ([]*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["list"]++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*Review, len(s.reviews))
	for i, r := range s.reviews {
		c := *r
		out[i] = &c
	}
	return out, nil
}

func (s *memStore) Existing(ctx context.Context, email string) (*Review, error) {
	found, err := s.lookup(email)

	// A gated lookup answers with what it saw before stalling.
	s.mu.Lock()
	gate, entered := s.lookupGate, s.lookupEntered
	s.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	return found, err
}

func (s *memStore) lookup(email string) (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["existing"]++
	if s.existingErr != nil {
		return nil, s.existingErr
	}
	if r := FindByAuthor(s.reviews, email); r != nil {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (s *memStore) Create(ctx context.Context, author Author, d Draft) (*Review, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["create"]++
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	s.nextID++
	r := &Review{
		ID:        fmt.Sprintf("r%d", s.nextID),
		Subject:   s.subject,
		Author:    author,
		Rating:    d.Rating,
		Text:      d.Text,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.reviews = append(s.reviews, r)
	c := *r
	return &c, nil
}

func (s *memStore) Update(ctx context.Context, id string, author Author, d Draft) (*Review, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["update"]++
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	for _, r := range s.reviews {
		if r.ID == id {
			r.Rating = d.Rating
			r.Text = d.Text
			c := *r
			return &c, nil
		}
	}
	return nil, fmt.Errorf("review %s not found", id)
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["delete"]++
	if s.writeErr != nil {
		return s.writeErr
	}
	for i, r := range s.reviews {
		if r.ID == id {
			s.reviews = append(s.reviews[:i], s.reviews[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("review %s not found", id)
}

func (s *memStore) wait() {
	s.mu.Lock()
	block := s.block
	s.mu.Unlock()
	if block != nil {
		<-block
	}
}

var (
	alice = Author{Name: "Alice", Email: "alice@example.com"}
	bob   = Author{Name: "Bob", Email: "bob@example.com"}
)

func existingReview() *Review {
	return &Review{ID: "r1", Author: alice, Rating: 3, Text: "decent place overall"}
}

func loadedFlow(t *testing.T, store *memStore, author Author) *Flow {
	t.Helper()
	f := NewFlow(store, author)
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return f
}

func confirmWith(answer bool) ConfirmFunc {
	return func(ctx context.Context, prompt string) (bool, error) { return answer, nil }
}

func TestLoadFindsExistingReview(t *testing.T) {
	store := newMemStore(existingReview(), &Review{ID: "r2", Author: bob, Rating: 5, Text: "loved it here"})
	f := loadedFlow(t, store, Author{Name: "Alice", Email: "ALICE@example.com"})

	if f.State() != StateViewing {
		t.Fatalf("state = %s, want %s", f.State(), StateViewing)
	}
	if f.Existing().ID != "r1" {
		t.Errorf("existing = %s, want r1", f.Existing().ID)
	}
	if len(f.Reviews()) != 2 {
		t.Errorf("cached reviews = %d, want 2", len(f.Reviews()))
	}
	if f.Draft().Rating != 3 {
		t.Errorf("draft rating = %d, want 3", f.Draft().Rating)
	}
}

func TestSubmitBeforeLoad(t *testing.T) {
	store := newMemStore()
	f := NewFlow(store, alice)

	_, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if store.count("create") != 0 {
		t.Error("expected no create before the existence check")
	}
}

func TestSubmitCreatesWhenNoExistingReview(t *testing.T) {
	store := newMemStore(&Review{ID: "r2", Author: bob, Rating: 5, Text: "loved it here"})
	f := loadedFlow(t, store, alice)

	if f.State() != StateNoReview {
		t.Fatalf("state = %s, want %s", f.State(), StateNoReview)
	}

	saved, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.count("create") != 1 || store.count("update") != 0 {
		t.Errorf("create = %d, update = %d; want 1, 0", store.count("create"), store.count("update"))
	}
	if f.State() != StateViewing {
		t.Errorf("state = %s, want %s", f.State(), StateViewing)
	}
	if f.Existing().ID != saved.ID {
		t.Errorf("existing = %s, want %s", f.Existing().ID, saved.ID)
	}
	if len(f.Reviews()) != 2 {
		t.Errorf("cached reviews = %d, want 2", len(f.Reviews()))
	}

	// A fresh existence check now finds the created review.
	again := loadedFlow(t, store, alice)
	if again.Existing() == nil || again.Existing().ID != saved.ID {
		t.Errorf("existence check after create = %v, want %s", again.Existing(), saved.ID)
	}
}

func TestSubmitUpdatesWhenExistingReview(t *testing.T) {
	store := newMemStore(existingReview(), &Review{ID: "r2", Author: bob, Rating: 5, Text: "loved it here"})
	f := loadedFlow(t, store, alice)
	before := len(f.Reviews())

	if err := f.Edit(); err != nil {
		t.Fatalf("edit: %v", err)
	}
	saved, err := f.Submit(context.Background(), Draft{Rating: 5, Text: "better after renovation"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if store.count("update") != 1 || store.count("create") != 0 {
		t.Errorf("create = %d, update = %d; want 0, 1", store.count("create"), store.count("update"))
	}
	if saved.ID != "r1" || saved.Rating != 5 {
		t.Errorf("saved = %+v", saved)
	}
	if got := len(f.Reviews()); got != before {
		t.Errorf("cached reviews = %d, want %d", got, before)
	}
	if f.State() != StateViewing {
		t.Errorf("state = %s, want %s", f.State(), StateViewing)
	}
}

func TestSubmitUpdatesEvenWithoutEditIntent(t *testing.T) {
	store := newMemStore(existingReview())
	f := loadedFlow(t, store, alice)

	// Submitting straight from the viewing state must not create a duplicate.
	if _, err := f.Submit(context.Background(), Draft{Rating: 2, Text: "noisy street at night"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.count("create") != 0 {
		t.Error("expected update, got create")
	}
	if store.count("update") != 1 {
		t.Errorf("update = %d, want 1", store.count("update"))
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		draft   Draft
		wantErr bool
	}{
		{"nine characters", Draft{Rating: 4, Text: "123456789"}, true},
		{"ten characters", Draft{Rating: 4, Text: "1234567890"}, false},
		{"rating zero", Draft{Rating: 0, Text: "long enough text"}, true},
		{"rating six", Draft{Rating: 6, Text: "long enough text"}, true},
		{"rating one", Draft{Rating: 1, Text: "long enough text"}, false},
		{"whitespace padding ignored", Draft{Rating: 3, Text: "   short   "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			f := loadedFlow(t, store, alice)

			_, err := f.Submit(context.Background(), tt.draft)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("err = %v, want ErrValidation", err)
				}
				if store.count("create") != 0 {
					t.Error("validation failure reached the backend")
				}
				if f.State() != StateNoReview {
					t.Errorf("state = %s, want %s", f.State(), StateNoReview)
				}
				return
			}
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if store.count("create") != 1 {
				t.Errorf("create = %d, want 1", store.count("create"))
			}
		})
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	err := Draft{Rating: 9, Text: "short"}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if _, ok := verr.Fields["rating"]; !ok {
		t.Error("expected rating field error")
	}
	if _, ok := verr.Fields["text"]; !ok {
		t.Error("expected text field error")
	}
	if !strings.HasPrefix(err.Error(), "invalid review: rating") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestSubmitRequiresAuthor(t *testing.T) {
	store := newMemStore()
	f := loadedFlow(t, store, Author{})

	_, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"})
	if !errors.Is(err, ErrNoAuthor) {
		t.Fatalf("err = %v, want ErrNoAuthor", err)
	}
	if store.count("existing") != 0 {
		t.Error("expected no existence check without an author")
	}
}

func TestSubmitFailureRestoresState(t *testing.T) {
	t.Run("create failure stays in no-review", func(t *testing.T) {
		store := newMemStore()
		f := loadedFlow(t, store, alice)
		store.writeErr = errors.New("server exploded")

		if _, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"}); err == nil {
			t.Fatal("expected error")
		}
		if f.State() != StateNoReview {
			t.Errorf("state = %s, want %s", f.State(), StateNoReview)
		}
		if f.Existing() != nil {
			t.Error("expected no existing review after failed create")
		}
	})

	t.Run("update failure stays in editing", func(t *testing.T) {
		store := newMemStore(existingReview())
		f := loadedFlow(t, store, alice)
		if err := f.Edit(); err != nil {
			t.Fatalf("edit: %v", err)
		}
		store.writeErr = errors.New("server exploded")

		if _, err := f.Submit(context.Background(), Draft{Rating: 1, Text: "changed my mind"}); err == nil {
			t.Fatal("expected error")
		}
		if f.State() != StateEditing {
			t.Errorf("state = %s, want %s", f.State(), StateEditing)
		}
		if f.Existing().Rating != 3 {
			t.Errorf("existing rating = %d, want unchanged 3", f.Existing().Rating)
		}
	})

	t.Run("duplicate rejection is surfaced", func(t *testing.T) {
		store := newMemStore()
		f := loadedFlow(t, store, alice)
		store.writeErr = fmt.Errorf("%w: conflict", ErrDuplicate)

		_, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"})
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("err = %v, want ErrDuplicate", err)
		}
		if f.State() != StateNoReview {
			t.Errorf("state = %s, want %s", f.State(), StateNoReview)
		}
	})
}

func TestExistenceCheckFailureStillEnablesSubmit(t *testing.T) {
	store := newMemStore()
	store.existingErr = errors.New("timeout")
	f := NewFlow(store, alice)

	if err := f.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if !f.Ready() {
		t.Fatal("expected flow to be ready after a failed check")
	}
	if _, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.count("create") != 1 {
		t.Errorf("create = %d, want 1", store.count("create"))
	}
}

func TestListFailureKeepsExistenceResult(t *testing.T) {
	store := newMemStore(existingReview())
	store.listErr = errors.New("boom")
	f := NewFlow(store, alice)

	if err := f.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if f.State() != StateViewing {
		t.Errorf("state = %s, want %s", f.State(), StateViewing)
	}
}

func TestEditAndCancel(t *testing.T) {
	store := newMemStore(existingReview())
	f := loadedFlow(t, store, alice)

	if err := f.Cancel(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel from viewing err = %v, want ErrInvalidTransition", err)
	}
	if err := f.Edit(); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := f.Edit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second edit err = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.Submit(context.Background(), Draft{Rating: 1, Text: "short"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("submit err = %v, want ErrValidation", err)
	}
	if f.State() != StateEditing {
		t.Fatalf("state = %s, want %s", f.State(), StateEditing)
	}
	if err := f.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.State() != StateViewing {
		t.Errorf("state = %s, want %s", f.State(), StateViewing)
	}
	if d := f.Draft(); d.Rating != 3 || d.Text != "decent place overall" {
		t.Errorf("draft = %+v, want restored server values", d)
	}
}

func TestEditWithoutReview(t *testing.T) {
	f := loadedFlow(t, newMemStore(), alice)
	if err := f.Edit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestDeleteDeclined(t *testing.T) {
	store := newMemStore(existingReview(), &Review{ID: "r2", Author: bob, Rating: 5, Text: "loved it here"})
	f := loadedFlow(t, store, alice)
	before := f.Reviews()

	deleted, err := f.Delete(context.Background(), confirmWith(false))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted {
		t.Error("expected declined delete to report false")
	}
	if store.count("delete") != 0 {
		t.Error("declined delete reached the backend")
	}
	if f.State() != StateViewing {
		t.Errorf("state = %s, want %s", f.State(), StateViewing)
	}
	after := f.Reviews()
	if len(after) != len(before) {
		t.Fatalf("reviews = %d, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("review %d = %s, want %s", i, after[i].ID, before[i].ID)
		}
	}
}

func TestDeleteConfirmed(t *testing.T) {
	store := newMemStore(existingReview(), &Review{ID: "r2", Author: bob, Rating: 5, Text: "loved it here"})
	f := loadedFlow(t, store, alice)

	var prompt string
	deleted, err := f.Delete(context.Background(), ConfirmFunc(func(ctx context.Context, p string) (bool, error) {
		prompt = p
		return true, nil
	}))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to report true")
	}
	if !strings.Contains(prompt, "property p1") {
		t.Errorf("prompt = %q", prompt)
	}
	if f.State() != StateNoReview || f.Existing() != nil {
		t.Errorf("state = %s, existing = %v", f.State(), f.Existing())
	}
	if got := f.Reviews(); len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("reviews after delete = %v", got)
	}
}

func TestDeleteFailureKeepsReview(t *testing.T) {
	store := newMemStore(existingReview())
	f := loadedFlow(t, store, alice)
	store.writeErr = errors.New("forbidden")

	if _, err := f.Delete(context.Background(), confirmWith(true)); err == nil {
		t.Fatal("expected error")
	}
	if f.State() != StateViewing || f.Existing() == nil {
		t.Errorf("state = %s, existing = %v", f.State(), f.Existing())
	}
}

func TestDeleteRequiresExistingReview(t *testing.T) {
	f := loadedFlow(t, newMemStore(), alice)
	if _, err := f.Delete(context.Background(), confirmWith(true)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestSubmitWhileInFlight(t *testing.T) {
	store := newMemStore()
	f := loadedFlow(t, store, alice)

	store.mu.Lock()
	store.block = make(chan struct{})
	store.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"})
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.State() != StateSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("flow never entered submitting state")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := f.Submit(context.Background(), Draft{Rating: 5, Text: "second attempt text"}); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent submit err = %v, want ErrBusy", err)
	}

	close(store.block)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.count("create") != 1 {
		t.Errorf("create = %d, want 1", store.count("create"))
	}
}

func TestReloadDuringSubmitKeepsSavedReview(t *testing.T) {
	store := newMemStore()
	f := loadedFlow(t, store, alice)

	store.mu.Lock()
	store.lookupGate = make(chan struct{})
	store.lookupEntered = make(chan struct{}, 1)
	store.mu.Unlock()

	loaded := make(chan error, 1)
	go func() { loaded <- f.Load(context.Background()) }()
	<-store.lookupEntered

	// The reload has already looked and seen no review when this lands.
	saved, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	close(store.lookupGate)
	if err := <-loaded; err != nil {
		t.Fatalf("load: %v", err)
	}

	if f.State() != StateViewing {
		t.Fatalf("state after overlapping reload = %v, want %v", f.State(), StateViewing)
	}
	if got := f.Existing(); got == nil || got.ID != saved.ID {
		t.Fatalf("existing = %+v, want %s", got, saved.ID)
	}

	if _, err := f.Submit(context.Background(), Draft{Rating: 2, Text: "changed my mind about it"}); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if c, u := store.count("create"), store.count("update"); c != 1 || u != 1 {
		t.Errorf("create = %d, update = %d, want 1 and 1", c, u)
	}
}

func TestReloadDuringDeleteKeepsDeletion(t *testing.T) {
	store := newMemStore(existingReview())
	f := loadedFlow(t, store, alice)

	store.mu.Lock()
	store.lookupGate = make(chan struct{})
	store.lookupEntered = make(chan struct{}, 1)
	store.mu.Unlock()

	loaded := make(chan error, 1)
	go func() { loaded <- f.Load(context.Background()) }()

	// The reload has already seen the review when the delete lands.
	<-store.lookupEntered

	deleted, err := f.Delete(context.Background(), confirmWith(true))
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	close(store.lookupGate)
	if err := <-loaded; err != nil {
		t.Fatalf("load: %v", err)
	}

	if f.State() != StateNoReview || f.Existing() != nil {
		t.Errorf("state = %v existing = %+v, want no review", f.State(), f.Existing())
	}
}

// listOnlyStore answers existence checks by searching its list.
type listOnlyStore struct {
	*memStore
}

func (listOnlyStore) ExistingFromList() bool { return true }

func TestLoadSearchesListOnce(t *testing.T) {
	store := newMemStore(existingReview(), &Review{ID: "r2", Author: bob, Rating: 5, Text: "loved it here"})
	f := NewFlow(listOnlyStore{store}, alice)
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := store.count("list"); got != 1 {
		t.Errorf("list calls = %d, want 1", got)
	}
	if got := store.count("existing"); got != 0 {
		t.Errorf("existing calls = %d, want 0", got)
	}
	if f.State() != StateViewing || f.Existing().ID != "r1" {
		t.Errorf("state = %v existing = %+v", f.State(), f.Existing())
	}
	if len(f.Reviews()) != 2 {
		t.Errorf("reviews = %d, want 2", len(f.Reviews()))
	}
}

func TestLoadFromListFailureStillEnablesSubmit(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("backend down")
	f := NewFlow(listOnlyStore{store}, alice)

	if err := f.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if !f.Ready() || f.State() != StateNoReview {
		t.Fatalf("ready = %v state = %v", f.Ready(), f.State())
	}
	if _, err := f.Submit(context.Background(), Draft{Rating: 4, Text: "lovely flat, great view"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.count("create") != 1 {
		t.Errorf("create = %d, want 1", store.count("create"))
	}
}

func TestAverage(t *testing.T) {
	if got := Average(nil); got != 0 {
		t.Errorf("Average(nil) = %v", got)
	}
	got := Average([]*Review{{Rating: 4}, {Rating: 5}})
	if got != 4.5 {
		t.Errorf("Average = %v, want 4.5", got)
	}
}

// Package favorite keeps the locally saved favorites list and the
// remembered sign-in email.
package favorite

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/evcraddock/homenest/internal/kv"
	"github.com/evcraddock/homenest/internal/property"
)

const (
	favoritesKey     = "favorites"
	rememberEmailKey = "remember_email"
)

// Favorite is a property saved for later, snapshotted when it was added.
type Favorite struct {
	PropertyID string            `json:"property_id"`
	Name       string            `json:"name"`
	Category   property.Category `json:"category"`
	City       string            `json:"city"`
	Price      string            `json:"price"`
	AddedAt    time.Time         `json:"added_at"`
}

// FromProperty snapshots p as a favorite.
func FromProperty(p *property.Property, now time.Time) Favorite {
	return Favorite{
		PropertyID: p.ID,
		Name:       p.Name,
		Category:   p.Category,
		City:       p.Location.City,
		Price:      property.FormatPrice(p),
		AddedAt:    now,
	}
}

// Store persists favorites over a kv.Store.
type Store struct {
	kv kv.Store
}

// NewStore creates a favorites store.
func NewStore(s kv.Store) *Store {
	return &Store{kv: s}
}

// List returns the saved favorites in the order they were added. An
// unreadable saved list is treated as empty.
func (s *Store) List(ctx context.Context) ([]Favorite, error) {
	var favs []Favorite
	if _, err := kv.GetJSON(ctx, s.kv, favoritesKey, &favs); err != nil {
		slog.Warn("discarding unreadable favorites", "error", err)
		return []Favorite{}, nil
	}
	if favs == nil {
		favs = []Favorite{}
	}
	return favs, nil
}

// Add saves f. Adding a property that is already saved is a no-op and
// returns false.
func (s *Store) Add(ctx context.Context, f Favorite) (bool, error) {
	if f.PropertyID == "" {
		return false, fmt.Errorf("property id is required")
	}
	favs, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	if s.index(favs, f.PropertyID) >= 0 {
		return false, nil
	}
	if err := kv.SetJSON(ctx, s.kv, favoritesKey, append(favs, f)); err != nil {
		return false, fmt.Errorf("saving favorites: %w", err)
	}
	return true, nil
}

// Remove deletes the favorite for propertyID. It returns false if it was
// not saved.
func (s *Store) Remove(ctx context.Context, propertyID string) (bool, error) {
	favs, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	i := s.index(favs, propertyID)
	if i < 0 {
		return false, nil
	}
	if err := kv.SetJSON(ctx, s.kv, favoritesKey, slices.Delete(favs, i, i+1)); err != nil {
		return false, fmt.Errorf("saving favorites: %w", err)
	}
	return true, nil
}

func (s *Store) index(favs []Favorite, propertyID string) int {
	return slices.IndexFunc(favs, func(f Favorite) bool { return f.PropertyID == propertyID })
}

// RememberedEmail returns the email saved by a "remember me" sign in, or "".
func (s *Store) RememberedEmail(ctx context.Context) (string, error) {
	var email string
	if _, err := kv.GetJSON(ctx, s.kv, rememberEmailKey, &email); err != nil {
		return "", fmt.Errorf("reading remembered email: %w", err)
	}
	return email, nil
}

// SetRememberedEmail saves email when remember is true and forgets any saved
// email otherwise.
func (s *Store) SetRememberedEmail(ctx context.Context, email string, remember bool) error {
	email = strings.TrimSpace(email)
	if !remember || email == "" {
		if err := s.kv.Delete(ctx, rememberEmailKey); err != nil {
			return fmt.Errorf("forgetting email: %w", err)
		}
		return nil
	}
	if err := kv.SetJSON(ctx, s.kv, rememberEmailKey, email); err != nil {
		return fmt.Errorf("remembering email: %w", err)
	}
	return nil
}

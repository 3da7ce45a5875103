package favorite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/evcraddock/homenest/internal/db"
	"github.com/evcraddock/homenest/internal/kv"
	"github.com/evcraddock/homenest/internal/property"
)

func testStore(t *testing.T) (*Store, kv.Store) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "hn.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	backend := kv.NewSQLite(d)
	return NewStore(backend), backend
}

func fav(id string) Favorite {
	return Favorite{PropertyID: id, Name: "Home " + id, AddedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
}

func TestAddListRemove(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	favs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(favs) != 0 {
		t.Fatalf("got %d favorites, want 0", len(favs))
	}

	for _, id := range []string{"p1", "p2"} {
		added, err := s.Add(ctx, fav(id))
		if err != nil || !added {
			t.Fatalf("add %s: added=%v err=%v", id, added, err)
		}
	}

	added, err := s.Add(ctx, fav("p1"))
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if added {
		t.Error("adding an existing favorite should be a no-op")
	}

	favs, err = s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]Favorite{fav("p1"), fav("p2")}, favs); diff != "" {
		t.Errorf("favorites (-want +got):\n%s", diff)
	}

	removed, err := s.Remove(ctx, "p1")
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	removed, err = s.Remove(ctx, "p1")
	if err != nil || removed {
		t.Errorf("remove absent: removed=%v err=%v", removed, err)
	}

	favs, _ = s.List(ctx)
	if len(favs) != 1 || favs[0].PropertyID != "p2" {
		t.Errorf("favorites after remove = %+v", favs)
	}
}

func TestAddRequiresID(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Add(context.Background(), Favorite{Name: "nameless"}); err == nil {
		t.Fatal("expected error for empty property id")
	}
}

func TestCorruptListIsEmpty(t *testing.T) {
	s, backend := testStore(t)
	ctx := context.Background()
	if err := backend.Set(ctx, favoritesKey, []byte("not json")); err != nil {
		t.Fatalf("set: %v", err)
	}

	favs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(favs) != 0 {
		t.Errorf("got %d favorites from corrupt data", len(favs))
	}

	if _, err := s.Add(ctx, fav("p9")); err != nil {
		t.Fatalf("add over corrupt data: %v", err)
	}
	favs, _ = s.List(ctx)
	if len(favs) != 1 {
		t.Errorf("got %d favorites, want 1", len(favs))
	}
}

func TestRememberedEmail(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		remember bool
		want     string
	}{
		{"remember trims", "  ann@example.com ", true, "ann@example.com"},
		{"forget", "ann@example.com", false, ""},
		{"remember again", "bob@example.com", true, "bob@example.com"},
		{"blank forgets", "   ", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.SetRememberedEmail(ctx, tt.email, tt.remember); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := s.RememberedEmail(ctx)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != tt.want {
				t.Errorf("remembered = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromProperty(t *testing.T) {
	p := &property.Property{
		ID: "p1", Name: "Lake View", Category: property.CategoryApartment,
		Price: 25000, Currency: "BDT", PriceUnit: "month",
		Location: property.Location{City: "Dhaka"},
	}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := FromProperty(p, now)
	want := Favorite{
		PropertyID: "p1", Name: "Lake View", Category: property.CategoryApartment,
		City: "Dhaka", Price: "BDT 25,000 /month", AddedAt: now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromProperty (-want +got):\n%s", diff)
	}
}

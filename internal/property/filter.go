package property

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortMode orders a filtered listing.
type SortMode string

const (
	SortNewest    SortMode = "newest"
	SortOldest    SortMode = "oldest"
	SortPriceLow  SortMode = "price-low"
	SortPriceHigh SortMode = "price-high"
)

// ParseSortMode resolves a sort flag value. The empty string keeps the
// incoming order.
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "newest":
		return SortNewest, nil
	case "oldest":
		return SortOldest, nil
	case "price-low", "price-asc":
		return SortPriceLow, nil
	case "price-high", "price-desc":
		return SortPriceHigh, nil
	}
	return "", fmt.Errorf("unknown sort mode %q (want newest, oldest, price-low or price-high)", s)
}

// Criteria is what the user typed and selected in a listing view.
type Criteria struct {
	Query    string
	Category Category
	Sort     SortMode
}

// Apply filters props by c and sorts the survivors. The input slice is
// never modified; the result is always a new slice.
func Apply(props []*Property, c Criteria) []*Property {
	return Sort(Filter(props, c.Query, c.Category), c.Sort)
}

// Filter keeps the records that match both the text query and the category.
func Filter(props []*Property, query string, category Category) []*Property {
	q := strings.ToLower(query)
	out := make([]*Property, 0, len(props))
	for _, p := range props {
		if matchesQuery(p, q) && matchesCategory(p, category) {
			out = append(out, p)
		}
	}
	return out
}

// Sort returns a stably sorted copy of props. Newest/oldest compare IDs
// lexicographically, which tracks creation order for the backend's ID scheme.
func Sort(props []*Property, mode SortMode) []*Property {
	out := slices.Clone(props)
	if out == nil {
		out = []*Property{}
	}

	var less func(a, b *Property) int
	switch mode {
	case SortNewest:
		less = func(a, b *Property) int { return strings.Compare(b.ID, a.ID) }
	case SortOldest:
		less = func(a, b *Property) int { return strings.Compare(a.ID, b.ID) }
	case SortPriceLow:
		less = func(a, b *Property) int { return cmp.Compare(a.Price, b.Price) }
	case SortPriceHigh:
		less = func(a, b *Property) int { return cmp.Compare(b.Price, a.Price) }
	default:
		return out
	}

	slices.SortStableFunc(out, less)
	return out
}

// matchesQuery expects q already lower-cased.
func matchesQuery(p *Property, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Location.City), q) ||
		strings.Contains(strings.ToLower(p.Location.Area), q)
}

func matchesCategory(p *Property, c Category) bool {
	return c == "" || c == CategoryAll || p.Category == c
}

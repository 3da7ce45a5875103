// Package property provides the property listing model and the
// filter/sort/search pipeline used by the listing views.
package property

import (
	"fmt"
	"math"
	"strings"
)

// Category is the kind of property a listing advertises.
type Category string

const (
	CategoryAll        Category = "All"
	CategoryApartment  Category = "Apartment"
	CategoryHouseVilla Category = "House/Villa"
	CategoryCommercial Category = "Commercial"
	CategoryLandPlot   Category = "Land/Plot"
)

// Categories lists the concrete categories a listing may carry.
var Categories = []Category{CategoryApartment, CategoryHouseVilla, CategoryCommercial, CategoryLandPlot}

// ParseCategory resolves user input to a canonical category.
// Matching is case-insensitive; an empty string is the "All" sentinel.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(CategoryAll)) {
		return CategoryAll, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q (want All, Apartment, House/Villa, Commercial or Land/Plot)", s)
}

// Location is where a property is situated.
type Location struct {
	City    string `json:"city"`
	Area    string `json:"area"`
	Address string `json:"address"`
}

// Poster identifies the user who listed a property.
type Poster struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
}

// Property is a listing as served by the backend.
// ID ordering doubles as a creation-time ordering.
type Property struct {
	ID          string    `json:"_id"`
	Name        string    `json:"property_name"`
	Category    Category  `json:"category"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	PriceUnit   string    `json:"price_unit,omitempty"`
	Location    Location  `json:"location"`
	Description string    `json:"description"`
	Image       string    `json:"property_image"`
	PostedBy    Poster    `json:"posted_by"`
	PostedAt    Timestamp `json:"posted_date"`
}

// Validate reports whether a record received from the backend carries the
// fields the views depend on.
func (p *Property) Validate() error {
	var missing []string
	if p.ID == "" {
		missing = append(missing, "_id")
	}
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "property_name")
	}
	if p.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("property %q missing %s", p.ID, strings.Join(missing, ", "))
	}
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price < 0 {
		return fmt.Errorf("property %s has invalid price %v", p.ID, p.Price)
	}
	return nil
}

// Input is the payload for creating or updating a listing.
type Input struct {
	Name        string   `json:"property_name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	PriceUnit   string   `json:"price_unit,omitempty"`
	Location    Location `json:"location"`
	Image       string   `json:"property_image"`
	PostedBy    *Poster  `json:"posted_by,omitempty"`
}

// Validate checks an input before it is sent to the backend.
func (in *Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("property name is required")
	}
	if in.Category == "" || in.Category == CategoryAll {
		return fmt.Errorf("category is required")
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return fmt.Errorf("price must be a non-negative number")
	}
	if strings.TrimSpace(in.Location.City) == "" {
		return fmt.Errorf("city is required")
	}
	return nil
}

// InputFrom copies the editable fields of p into an Input.
func InputFrom(p *Property) Input {
	return Input{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Currency:    p.Currency,
		PriceUnit:   p.PriceUnit,
		Location:    p.Location,
		Image:       p.Image,
	}
}

// FormatPrice renders a price with its currency and optional unit,
// e.g. "BDT 25,000 /month".
func FormatPrice(p *Property) string {
	amount := formatWithCommas(int64(math.Round(p.Price)))
	s := amount
	if p.Currency != "" {
		s = p.Currency + " " + amount
	}
	if p.PriceUnit != "" {
		unit := p.PriceUnit
		if !strings.HasPrefix(unit, "/") {
			unit = "/" + unit
		}
		s += " " + unit
	}
	return s
}

func formatWithCommas(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var parts []string
		for len(s) > 3 {
			parts = append([]string{s[len(s)-3:]}, parts...)
			s = s[:len(s)-3]
		}
		parts = append([]string{s}, parts...)
		s = strings.Join(parts, ",")
	}
	if neg {
		return "-" + s
	}
	return s
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/homenest/internal/favorite"
	"github.com/evcraddock/homenest/internal/property"
	"github.com/evcraddock/homenest/internal/review"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPropertySummary prints a single property in text format.
func printPropertySummary(w io.Writer, p *property.Property) {
	fmt.Fprintf(w, "%s\n", p.Name)
	fmt.Fprintf(w, "  ID:       %s\n", p.ID)
	fmt.Fprintf(w, "  Category: %s\n", p.Category)
	fmt.Fprintf(w, "  Price:    %s\n", property.FormatPrice(p))
	fmt.Fprintf(w, "  Location: %s\n", formatLocation(p.Location))
	if p.Location.Address != "" {
		fmt.Fprintf(w, "  Address:  %s\n", p.Location.Address)
	}
	if p.PostedBy.Name != "" || p.PostedBy.Email != "" {
		fmt.Fprintf(w, "  Posted:   %s\n", formatPoster(p.PostedBy))
	}
	if !p.PostedAt.IsZero() {
		fmt.Fprintf(w, "  Listed:   %s\n", formatDate(p.PostedAt))
	}
	if p.Image != "" {
		fmt.Fprintf(w, "  Image:    %s\n", p.Image)
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n  %s\n", p.Description)
	}
}

// printPropertyTable prints a list of properties as a formatted table.
func printPropertyTable(out io.Writer, props []*property.Property) error {
	if len(props) == 0 {
		fmt.Fprintln(out, "No properties found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tLOCATION\tLISTED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t----\t--------\t-----\t--------\t------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, p := range props {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, truncate(p.Name, 32), p.Category, property.FormatPrice(p),
			truncate(formatLocation(p.Location), 30), formatDate(p.PostedAt)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d properties\n", len(props))
	return nil
}

// formatDate renders a listing date, or "-" when the backend sent none.
func formatDate(t property.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// printReviewList prints reviews in text format.
func printReviewList(w io.Writer, reviews []*review.Review) {
	if len(reviews) == 0 {
		fmt.Fprintln(w, "No reviews yet.")
		return
	}

	for _, r := range reviews {
		printReview(w, r)
		fmt.Fprintln(w)
	}
}

// printReview prints a single review in text format.
func printReview(w io.Writer, r *review.Review) {
	author := r.Author.Name
	if author == "" {
		author = r.Author.Email
	}
	if author == "" {
		author = "anonymous"
	}
	if r.Role != "" {
		author += ", " + r.Role
	}

	header := fmt.Sprintf("%s  %s (%s)", formatRating(r.Rating), author, r.ID)
	if !r.CreatedAt.IsZero() {
		header = fmt.Sprintf("[%s] %s", r.CreatedAt.Format("2006-01-02"), header)
	}
	fmt.Fprintln(w, header)
	if r.PropertyName != "" {
		fmt.Fprintf(w, "  on %s\n", r.PropertyName)
	}
	fmt.Fprintf(w, "  %s\n", r.Text)
}

// printFavorites prints saved favorites as a table.
func printFavorites(out io.Writer, favs []favorite.Favorite) error {
	if len(favs) == 0 {
		fmt.Fprintln(out, "No favorites saved.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tCITY\tPRICE\tADDED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, f := range favs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			f.PropertyID, truncate(f.Name, 32), f.City, f.Price, f.AddedAt.Format("2006-01-02")); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// formatRating returns a star representation of a rating (1-5).
func formatRating(rating int) string {
	if rating < review.MinRating {
		rating = review.MinRating
	}
	if rating > review.MaxRating {
		rating = review.MaxRating
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", review.MaxRating-rating)
}

func formatLocation(l property.Location) string {
	var parts []string
	for _, s := range []string{l.Area, l.City} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func formatPoster(p property.Poster) string {
	switch {
	case p.Name != "" && p.Email != "":
		return fmt.Sprintf("%s <%s>", p.Name, p.Email)
	case p.Name != "":
		return p.Name
	default:
		return p.Email
	}
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

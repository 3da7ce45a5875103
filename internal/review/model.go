// Package review provides the review/testimonial model and the flow that
// keeps a user to at most one review per subject.
package review

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinRating     = 1
	MaxRating     = 5
	MinTextLength = 10
)

// SubjectKind says what a review is attached to.
type SubjectKind string

const (
	SubjectProperty SubjectKind = "property"
	SubjectSite     SubjectKind = "site"
)

// Subject is the property (or the site as a whole) a review is about.
type Subject struct {
	Kind SubjectKind
	ID   string // property ID; empty for the site
}

// PropertySubject returns the subject for a property's reviews.
func PropertySubject(id string) Subject {
	return Subject{Kind: SubjectProperty, ID: id}
}

// SiteSubject returns the subject for site-wide testimonials.
func SiteSubject() Subject {
	return Subject{Kind: SubjectSite}
}

func (s Subject) String() string {
	if s.Kind == SubjectSite {
		return "site"
	}
	return "property " + s.ID
}

// Author identifies who wrote a review.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Review is a rating with text left by one author for one subject.
type Review struct {
	ID        string    `json:"id"`
	Subject   Subject   `json:"-"`
	Author    Author    `json:"author"`
	Role      string    `json:"role,omitempty"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	// Set on the "my ratings" view only.
	PropertyName  string `json:"property_name,omitempty"`
	PropertyImage string `json:"property_image,omitempty"`
}

// Draft is the user-editable part of a review.
type Draft struct {
	Rating int
	Text   string
	Role   string
}

// DraftFrom returns the editable fields of r.
func DraftFrom(r *Review) Draft {
	return Draft{Rating: r.Rating, Text: r.Text, Role: r.Role}
}

// ErrValidation matches any *ValidationError.
var ErrValidation = errors.New("invalid review")

// ValidationError lists the fields of a draft that failed local checks.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, k+": "+e.Fields[k])
	}
	return "invalid review: " + strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validate checks the rating range and the minimum text length.
func (d Draft) Validate() error {
	fields := make(map[string]string)
	if d.Rating < MinRating || d.Rating > MaxRating {
		fields["rating"] = fmt.Sprintf("must be %d-%d, got %d", MinRating, MaxRating, d.Rating)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(d.Text)); n < MinTextLength {
		fields["text"] = fmt.Sprintf("must be at least %d characters, got %d", MinTextLength, n)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// FindByAuthor returns the review in reviews written by email, or nil.
// Emails compare case-insensitively.
func FindByAuthor(reviews []*Review, email string) *Review {
	if email == "" {
		return nil
	}
	for _, r := range reviews {
		if strings.EqualFold(r.Author.Email, email) {
			return r
		}
	}
	return nil
}

// Average returns the mean rating of reviews, or 0 for none.
func Average(reviews []*Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

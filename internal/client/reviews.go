package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/evcraddock/homenest/internal/property"
	"github.com/evcraddock/homenest/internal/review"
)

type propertyReviewDTO struct {
	ID            string             `json:"_id"`
	PropertyID    string             `json:"property_id"`
	ReviewerName  string             `json:"reviewer_name"`
	ReviewerEmail string             `json:"reviewer_email"`
	Rating        int                `json:"rating"`
	ReviewText    string             `json:"review_text"`
	CreatedAt     property.Timestamp `json:"created_at"`
	PropertyName  string             `json:"property_name,omitempty"`
	PropertyImage string             `json:"property_image,omitempty"`
}

type propertyReviewInput struct {
	Rating        int    `json:"rating"`
	ReviewText    string `json:"review_text"`
	ReviewerName  string `json:"reviewer_name"`
	ReviewerEmail string `json:"reviewer_email"`
}

type testimonialDTO struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

type testimonialInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (d propertyReviewDTO) toReview() (*review.Review, error) {
	if d.ID == "" {
		return nil, malformed("review missing _id")
	}
	return &review.Review{
		ID:            d.ID,
		Subject:       review.PropertySubject(d.PropertyID),
		Author:        review.Author{Name: d.ReviewerName, Email: d.ReviewerEmail},
		Rating:        d.Rating,
		Text:          d.ReviewText,
		CreatedAt:     d.CreatedAt.Time,
		PropertyName:  d.PropertyName,
		PropertyImage: d.PropertyImage,
	}, nil
}

func (d testimonialDTO) toReview() (*review.Review, error) {
	if d.ID == "" {
		return nil, malformed("testimonial missing _id")
	}
	return &review.Review{
		ID:      d.ID,
		Subject: review.SiteSubject(),
		Author:  review.Author{Name: d.Name, Email: d.Email},
		Role:    d.Role,
		Rating:  d.Rating,
		Text:    d.Review,
	}, nil
}

func propertyReviewsFromDTOs(dtos []propertyReviewDTO) ([]*review.Review, error) {
	out := make([]*review.Review, 0, len(dtos))
	for _, d := range dtos {
		r, err := d.toReview()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func testimonialsFromDTOs(dtos []testimonialDTO) ([]*review.Review, error) {
	out := make([]*review.Review, 0, len(dtos))
	for _, d := range dtos {
		r, err := d.toReview()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// duplicate marks a 409 from the backend as a review conflict.
func duplicate(err error) error {
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w: %w", review.ErrDuplicate, err)
	}
	return err
}

// PropertyReviewStore is the review.Store for one property's reviews.
type PropertyReviewStore struct {
	c          *Client
	propertyID string
}

// PropertyReviews returns the review store for a property.
func (c *Client) PropertyReviews(propertyID string) *PropertyReviewStore {
	return &PropertyReviewStore{c: c, propertyID: propertyID}
}

// Subject implements review.Store.
func (s *PropertyReviewStore) Subject() review.Subject {
	return review.PropertySubject(s.propertyID)
}

// List implements review.Store.
func (s *PropertyReviewStore) List(ctx context.Context) ([]*review.Review, error) {
	var dtos []propertyReviewDTO
	if err := s.c.get(ctx, s.path(), &dtos); err != nil {
		return nil, err
	}
	reviews, err := propertyReviewsFromDTOs(dtos)
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		if r.Subject.ID == "" {
			r.Subject = s.Subject()
		}
	}
	return reviews, nil
}

// Existing implements review.Store. The backend has no per-author lookup for
// property reviews, so the subject's list is searched.
func (s *PropertyReviewStore) Existing(ctx context.Context, email string) (*review.Review, error) {
	reviews, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return review.FindByAuthor(reviews, email), nil
}

// ExistingFromList implements review.ListLookup.
func (s *PropertyReviewStore) ExistingFromList() bool { return true }

// Create implements review.Store.
func (s *PropertyReviewStore) Create(ctx context.Context, author review.Author, d review.Draft) (*review.Review, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodPost, s.path(), s.input(author, d), &raw); err != nil {
		return nil, duplicate(err)
	}
	return s.stored(ctx, raw, author.Email)
}

// Update implements review.Store.
func (s *PropertyReviewStore) Update(ctx context.Context, id string, author review.Author, d review.Draft) (*review.Review, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodPut, "/reviews/"+url.PathEscape(id), s.input(author, d), &raw); err != nil {
		return nil, duplicate(err)
	}
	return s.stored(ctx, raw, author.Email)
}

// Delete implements review.Store.
func (s *PropertyReviewStore) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(id), nil, nil)
}

func (s *PropertyReviewStore) path() string {
	return propertyPath(s.propertyID) + "/reviews"
}

func (s *PropertyReviewStore) input(author review.Author, d review.Draft) propertyReviewInput {
	return propertyReviewInput{
		Rating:        d.Rating,
		ReviewText:    strings.TrimSpace(d.Text),
		ReviewerName:  author.Name,
		ReviewerEmail: author.Email,
	}
}

func (s *PropertyReviewStore) stored(ctx context.Context, raw json.RawMessage, email string) (*review.Review, error) {
	var dto propertyReviewDTO
	if json.Unmarshal(raw, &dto) == nil && dto.ID != "" {
		r, err := dto.toReview()
		if err != nil {
			return nil, err
		}
		if r.Subject.ID == "" {
			r.Subject = s.Subject()
		}
		return r, nil
	}
	return s.refetch(ctx, email)
}

func (s *PropertyReviewStore) refetch(ctx context.Context, email string) (*review.Review, error) {
	r, err := s.Existing(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("reading back saved review: %w", err)
	}
	if r == nil {
		return nil, malformed("saved review not found for %s", email)
	}
	return r, nil
}

// TestimonialStore is the review.Store for site testimonials.
type TestimonialStore struct {
	c *Client
}

// Testimonials returns the store for site-wide testimonials.
func (c *Client) Testimonials() *TestimonialStore {
	return &TestimonialStore{c: c}
}

// Subject implements review.Store.
func (s *TestimonialStore) Subject() review.Subject {
	return review.SiteSubject()
}

// List implements review.Store.
func (s *TestimonialStore) List(ctx context.Context) ([]*review.Review, error) {
	var dtos []testimonialDTO
	if err := s.c.get(ctx, "/testimonials", &dtos); err != nil {
		return nil, err
	}
	return testimonialsFromDTOs(dtos)
}

// Existing implements review.Store. A 404 or an empty body from the
// per-user endpoint means the author has not written one.
func (s *TestimonialStore) Existing(ctx context.Context, email string) (*review.Review, error) {
	var raw json.RawMessage
	err := s.c.get(ctx, "/testimonials/user/"+url.PathEscape(email), &raw)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "null" || trimmed == "{}":
		return nil, nil
	case strings.HasPrefix(trimmed, "["):
		var dtos []testimonialDTO
		if err := json.Unmarshal(raw, &dtos); err != nil {
			return nil, malformed("testimonial list: %v", err)
		}
		if len(dtos) == 0 {
			return nil, nil
		}
		return dtos[0].toReview()
	default:
		var dto testimonialDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return nil, malformed("testimonial: %v", err)
		}
		return dto.toReview()
	}
}

// Create implements review.Store.
func (s *TestimonialStore) Create(ctx context.Context, author review.Author, d review.Draft) (*review.Review, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodPost, "/testimonials", s.input(author, d), &raw); err != nil {
		return nil, duplicate(err)
	}
	return s.stored(ctx, raw, author.Email)
}

// Update implements review.Store.
func (s *TestimonialStore) Update(ctx context.Context, id string, author review.Author, d review.Draft) (*review.Review, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodPut, "/testimonials/"+url.PathEscape(id), s.input(author, d), &raw); err != nil {
		return nil, duplicate(err)
	}
	return s.stored(ctx, raw, author.Email)
}

// Delete implements review.Store.
func (s *TestimonialStore) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, "/testimonials/"+url.PathEscape(id), nil, nil)
}

func (s *TestimonialStore) input(author review.Author, d review.Draft) testimonialInput {
	return testimonialInput{
		Name:   author.Name,
		Email:  author.Email,
		Role:   d.Role,
		Rating: d.Rating,
		Review: strings.TrimSpace(d.Text),
	}
}

func (s *TestimonialStore) stored(ctx context.Context, raw json.RawMessage, email string) (*review.Review, error) {
	var dto testimonialDTO
	if json.Unmarshal(raw, &dto) == nil && dto.ID != "" {
		return dto.toReview()
	}
	r, err := s.Existing(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("reading back saved testimonial: %w", err)
	}
	if r == nil {
		return nil, malformed("saved testimonial not found for %s", email)
	}
	return r, nil
}

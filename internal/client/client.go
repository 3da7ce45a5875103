// Package client provides an HTTP client for the HomeNest listing backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/evcraddock/homenest/internal/logging"
	"github.com/evcraddock/homenest/internal/property"
	"github.com/evcraddock/homenest/internal/review"
)

// TokenSource yields the current identity token. An empty token with a nil
// error means there is no session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the listing backend.
type Client struct {
	baseURL    string
	tokens     TokenSource
	limiter    *rate.Limiter
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource attaches identity tokens to mutating requests.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTransport sets the round tripper beneath the request logger.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = logging.NewTransport(rt) }
}

// New creates a new API client. No timeout is set; callers bound requests
// through the context.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: logging.NewTransport(nil)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProperties returns every listing.
func (c *Client) ListProperties(ctx context.Context) ([]*property.Property, error) {
	return c.getProperties(ctx, "/properties")
}

// MyProperties returns the listings posted by email.
func (c *Client) MyProperties(ctx context.Context, email string) ([]*property.Property, error) {
	return c.getProperties(ctx, "/my-properties/"+url.PathEscape(email))
}

// GetProperty returns a single listing.
func (c *Client) GetProperty(ctx context.Context, id string) (*property.Property, error) {
	var p property.Property
	if err := c.get(ctx, propertyPath(id), &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, malformed("%v", err)
	}
	return &p, nil
}

// CreateProperty posts a new listing and returns it as stored.
func (c *Client) CreateProperty(ctx context.Context, in property.Input) (*property.Property, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/properties", in, &raw); err != nil {
		return nil, err
	}
	return c.storedProperty(ctx, raw, "")
}

// UpdateProperty replaces the editable fields of a listing.
func (c *Client) UpdateProperty(ctx context.Context, id string, in property.Input) (*property.Property, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, propertyPath(id), in, &raw); err != nil {
		return nil, err
	}
	return c.storedProperty(ctx, raw, id)
}

// DeleteProperty removes a listing.
func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, propertyPath(id), nil, nil)
}

// MyRatings returns every property review written by email.
func (c *Client) MyRatings(ctx context.Context, email string) ([]*review.Review, error) {
	var dtos []propertyReviewDTO
	if err := c.get(ctx, "/my-property-ratings/"+url.PathEscape(email), &dtos); err != nil {
		return nil, err
	}
	return propertyReviewsFromDTOs(dtos)
}

func (c *Client) getProperties(ctx context.Context, path string) ([]*property.Property, error) {
	var props []*property.Property
	if err := c.get(ctx, path, &props); err != nil {
		return nil, err
	}
	for _, p := range props {
		if p == nil {
			return nil, malformed("null property in list")
		}
		if err := p.Validate(); err != nil {
			return nil, malformed("%v", err)
		}
	}
	if props == nil {
		props = []*property.Property{}
	}
	return props, nil
}

// storedProperty turns a write response into the stored record. Backends
// that answer with an insert acknowledgement instead of the document are
// followed up with a GET.
func (c *Client) storedProperty(ctx context.Context, raw json.RawMessage, id string) (*property.Property, error) {
	var p property.Property
	if err := json.Unmarshal(raw, &p); err == nil && p.Validate() == nil {
		return &p, nil
	}
	if inserted := insertedID(raw); inserted != "" {
		id = inserted
	}
	if id == "" {
		return nil, malformed("write response carries neither a property nor an id")
	}
	return c.GetProperty(ctx, id)
}

// insertedID extracts the id from a MongoDB-style write acknowledgement.
func insertedID(raw json.RawMessage) string {
	var ack struct {
		InsertedID string `json:"insertedId"`
	}
	if err := json.Unmarshal(raw, &ack); err != nil {
		return ""
	}
	return ack.InsertedID
}

func propertyPath(id string) string {
	return "/properties/" + url.PathEscape(id)
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// do executes a request and normalises every outcome into either a decoded
// result or one of the package's error kinds. Mutating requests carry the
// identity token when one is available.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrNetwork, err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		c.authorize(ctx, req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:  method,
			Path:    path,
			Code:    resp.StatusCode,
			Message: errorMessage(respBody),
		}
	}

	if result == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return malformed("%s %s: empty body", method, path)
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return malformed("%s %s: %v", method, path, err)
	}
	return nil
}

// authorize attaches a bearer credential when the session can produce one.
// It never blocks a request; the backend decides what needs credentials.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		slog.Warn("identity token unavailable, sending request without credentials",
			"method", req.Method, "path", req.URL.Path, "error", err)
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// errorMessage pulls a human message out of a JSON error body.
func errorMessage(body []byte) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) != nil {
		return ""
	}
	if errResp.Message != "" {
		return errResp.Message
	}
	return errResp.Error
}

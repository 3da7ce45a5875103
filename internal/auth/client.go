package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/evcraddock/homenest/internal/logging"
)

// Credentials is what the identity provider returns after a sign in or a
// token refresh.
type Credentials struct {
	UID          string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"` // seconds, as a decimal string
}

// Profile is the account data held by the identity provider.
type Profile struct {
	UID         string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

// Provider is the identity provider API used by Session.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Credentials, error)
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
	UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*Profile, error)
	Lookup(ctx context.Context, idToken string) (*Profile, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// Client talks to the Identity Toolkit REST API.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	identityURL string
	tokenURL    string
}

// NewClient creates an identity provider client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("identity API key is required")
	}
	cfg = cfg.withDefaults()
	return &Client{
		httpClient:  &http.Client{Transport: logging.NewTransport(nil)},
		apiKey:      cfg.APIKey,
		identityURL: strings.TrimRight(cfg.IdentityURL, "/"),
		tokenURL:    cfg.TokenURL,
	}, nil
}

// SignUp creates an email/password account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	var creds Credentials
	err := c.call(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &creds)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return &creds, nil
}

// SignIn signs in with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	var creds Credentials
	err := c.call(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &creds)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return &creds, nil
}

// SignInWithGoogle exchanges a Google ID token for a session.
func (c *Client) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Credentials, error) {
	postBody := url.Values{
		"id_token":   {googleIDToken},
		"providerId": {"google.com"},
	}
	var creds Credentials
	err := c.call(ctx, "accounts:signInWithIdp", map[string]interface{}{
		"postBody":          postBody.Encode(),
		"requestUri":        "http://localhost",
		"returnSecureToken": true,
	}, &creds)
	if err != nil {
		return nil, fmt.Errorf("google sign in: %w", err)
	}
	return &creds, nil
}

// refreshResponse uses the secure token service's snake_case fields.
type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// Refresh exchanges a refresh token for a fresh ID token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.tokenURL+"?key="+url.QueryEscape(c.apiKey), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := c.send(req, &resp); err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	return &Credentials{
		UID:          resp.UserID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// UpdateProfile sets the display name and photo of the signed-in account.
// Empty values are left unchanged.
func (c *Client) UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*Profile, error) {
	body := map[string]interface{}{"idToken": idToken}
	if displayName != "" {
		body["displayName"] = displayName
	}
	if photoURL != "" {
		body["photoUrl"] = photoURL
	}
	var p Profile
	if err := c.call(ctx, "accounts:update", body, &p); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return &p, nil
}

type lookupResponse struct {
	Users []Profile `json:"users"`
}

// Lookup returns the account behind idToken.
func (c *Client) Lookup(ctx context.Context, idToken string) (*Profile, error) {
	var resp lookupResponse
	if err := c.call(ctx, "accounts:lookup", map[string]interface{}{"idToken": idToken}, &resp); err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if len(resp.Users) == 0 {
		return nil, &ProviderError{Status: http.StatusBadRequest, Code: "USER_NOT_FOUND"}
	}
	return &resp.Users[0], nil
}

// SendPasswordReset emails a password reset link.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	err := c.call(ctx, "accounts:sendOobCode", map[string]interface{}{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
	if err != nil {
		return fmt.Errorf("sending password reset: %w", err)
	}
	return nil
}

// call POSTs a JSON body to an accounts:* method.
func (c *Client) call(ctx context.Context, method string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	endpoint := c.identityURL + "/" + method + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, result)
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) send(req *http.Request, result interface{}) (err error) {
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing body: %w", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
			return parseProviderError(resp.StatusCode, e.Error.Message)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

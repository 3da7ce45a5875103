package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evcraddock/homenest/internal/kv"
)

const (
	sessionKey = "session"
	// refreshSkew is how long before expiry an ID token is replaced.
	refreshSkew = 5 * time.Minute
)

// Identity is the signed-in user as views see it.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Name returns the display name, falling back to the email.
func (i *Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

type stored struct {
	Identity     Identity  `json:"identity"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// Session holds the current identity and its tokens. The identity is only
// changed by the sign in, sign out and profile operations on Session;
// callers get copies.
type Session struct {
	provider Provider
	store    kv.Store
	now      func() time.Time

	// refreshMu serialises token refreshes.
	refreshMu sync.Mutex

	mu     sync.Mutex
	state  *stored
	subs   map[int]func(*Identity)
	nextID int
}

// NewSession restores any persisted session from store.
func NewSession(ctx context.Context, p Provider, store kv.Store) (*Session, error) {
	s := &Session{
		provider: p,
		store:    store,
		now:      time.Now,
		subs:     make(map[int]func(*Identity)),
	}

	var st stored
	found, err := kv.GetJSON(ctx, store, sessionKey, &st)
	if err != nil {
		slog.Warn("discarding unreadable session", "error", err)
		return s, nil
	}
	if found && st.RefreshToken != "" {
		s.state = &st
	}
	return s, nil
}

// Current returns a copy of the signed-in identity, or nil.
func (s *Session) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	id := s.state.Identity
	return &id
}

// Subscribe registers fn to be called with the new identity (nil when signed
// out) after every change. The returned function unregisters it.
func (s *Session) Subscribe(fn func(*Identity)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SignUp creates an account, sets its display name and photo when given, and
// signs in.
func (s *Session) SignUp(ctx context.Context, email, password, displayName, photoURL string) (*Identity, error) {
	creds, err := s.provider.SignUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if displayName != "" || photoURL != "" {
		p, err := s.provider.UpdateProfile(ctx, creds.IDToken, displayName, photoURL)
		if err != nil {
			return nil, err
		}
		creds.DisplayName = p.DisplayName
		creds.PhotoURL = p.PhotoURL
	}
	return s.establish(ctx, creds)
}

// SignIn signs in with email and password.
func (s *Session) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	creds, err := s.provider.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, creds)
}

// SignInWithGoogle signs in with a Google ID token.
func (s *Session) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error) {
	creds, err := s.provider.SignInWithGoogle(ctx, googleIDToken)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, creds)
}

// SignOut forgets the session. Signing out when signed out is a no-op.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	wasSignedIn := s.state != nil
	s.mu.Unlock()
	if !wasSignedIn {
		return nil
	}
	return s.replace(ctx, nil)
}

// UpdateProfile changes the display name and photo of the signed-in user.
func (s *Session) UpdateProfile(ctx context.Context, displayName, photoURL string) (*Identity, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoSession
	}
	p, err := s.provider.UpdateProfile(ctx, token, displayName, photoURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	next := *s.state
	s.mu.Unlock()

	if p.DisplayName != "" {
		next.Identity.DisplayName = p.DisplayName
	}
	if p.PhotoURL != "" {
		next.Identity.PhotoURL = p.PhotoURL
	}
	if err := s.replace(ctx, &next); err != nil {
		return nil, err
	}
	id := next.Identity
	return &id, nil
}

// Refreshed asks the provider for the account's current profile and updates
// the identity if it changed elsewhere.
func (s *Session) Refreshed(ctx context.Context) (*Identity, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoSession
	}
	p, err := s.provider.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == nil {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	next := *s.state
	s.mu.Unlock()

	updated := Identity{UID: p.UID, Email: p.Email, DisplayName: p.DisplayName, PhotoURL: p.PhotoURL}
	if updated == next.Identity {
		return &updated, nil
	}
	next.Identity = updated
	if err := s.replace(ctx, &next); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ResetPassword asks the provider to email a reset link.
func (s *Session) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	return s.provider.SendPasswordReset(ctx, email)
}

// Token returns a fresh ID token for the signed-in user, refreshing it when
// it is near expiry. It returns "" with a nil error when signed out.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st == nil {
		return "", nil
	}
	if s.now().Add(refreshSkew).Before(st.Expiry) {
		return st.IDToken, nil
	}

	creds, err := s.provider.Refresh(ctx, st.RefreshToken)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.SessionExpired() {
			if clearErr := s.replace(ctx, nil); clearErr != nil {
				slog.Warn("clearing expired session", "error", clearErr)
			}
			return "", fmt.Errorf("%w: %w", ErrNoSession, err)
		}
		return "", err
	}

	next := *st
	next.IDToken = creds.IDToken
	if creds.RefreshToken != "" {
		next.RefreshToken = creds.RefreshToken
	}
	next.Expiry = s.expiry(creds.IDToken, creds.ExpiresIn)

	s.mu.Lock()
	if s.state != st {
		// Signed out or replaced while refreshing.
		s.mu.Unlock()
		return "", ErrNoSession
	}
	s.state = &next
	s.mu.Unlock()

	if err := kv.SetJSON(ctx, s.store, sessionKey, next); err != nil {
		slog.Warn("persisting refreshed session", "error", err)
	}
	return next.IDToken, nil
}

func (s *Session) establish(ctx context.Context, creds *Credentials) (*Identity, error) {
	st := &stored{
		Identity: Identity{
			UID:         creds.UID,
			Email:       creds.Email,
			DisplayName: creds.DisplayName,
			PhotoURL:    creds.PhotoURL,
		},
		IDToken:      creds.IDToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       s.expiry(creds.IDToken, creds.ExpiresIn),
	}
	if st.Identity.Email == "" {
		st.Identity.Email = tokenEmail(creds.IDToken)
	}
	if err := s.replace(ctx, st); err != nil {
		return nil, err
	}
	id := st.Identity
	return &id, nil
}

// replace swaps the session state, persists it and notifies subscribers.
func (s *Session) replace(ctx context.Context, st *stored) error {
	var err error
	if st == nil {
		err = s.store.Delete(ctx, sessionKey)
	} else {
		err = kv.SetJSON(ctx, s.store, sessionKey, st)
	}
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	s.mu.Lock()
	s.state = st
	subs := make([]func(*Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		var id *Identity
		if st != nil {
			cp := st.Identity
			id = &cp
		}
		fn(id)
	}
	return nil
}

// expiry reads the exp claim of an ID token, falling back to expiresIn
// seconds from now. The token is not verified; the backend does that.
func (s *Session) expiry(idToken, expiresIn string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if secs, err := strconv.Atoi(expiresIn); err == nil {
		return s.now().Add(time.Duration(secs) * time.Second)
	}
	return s.now()
}

func tokenEmail(idToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

// Package auth signs users in against the identity provider and keeps the
// resulting session.
package auth

const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1/token"
)

// Config holds identity provider configuration.
type Config struct {
	APIKey      string
	IdentityURL string // base for accounts:* endpoints
	TokenURL    string // refresh token exchange
}

func (c Config) withDefaults() Config {
	if c.IdentityURL == "" {
		c.IdentityURL = DefaultIdentityURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	return c
}

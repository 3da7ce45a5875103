package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSession is returned by operations that need a signed-in user.
var ErrNoSession = errors.New("not signed in")

// ProviderError is an error reported by the identity provider.
type ProviderError struct {
	Status int
	Code   string // e.g. EMAIL_EXISTS
	Detail string
}

var providerMessages = map[string]string{
	"EMAIL_EXISTS":                "an account with this email already exists",
	"EMAIL_NOT_FOUND":             "no account found for this email",
	"INVALID_PASSWORD":            "incorrect password",
	"INVALID_LOGIN_CREDENTIALS":   "invalid email or password",
	"INVALID_EMAIL":               "invalid email address",
	"WEAK_PASSWORD":               "password is too weak",
	"USER_DISABLED":               "this account has been disabled",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "too many attempts, try again later",
	"TOKEN_EXPIRED":               "session expired, sign in again",
	"INVALID_REFRESH_TOKEN":       "session expired, sign in again",
	"USER_NOT_FOUND":              "account no longer exists",
	"INVALID_ID_TOKEN":            "session expired, sign in again",
}

func (e *ProviderError) Error() string {
	msg, ok := providerMessages[e.Code]
	if !ok {
		msg = strings.ToLower(strings.ReplaceAll(e.Code, "_", " "))
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	return msg
}

// SessionExpired reports whether the provider rejected the stored
// credentials, meaning the user must sign in again.
func (e *ProviderError) SessionExpired() bool {
	switch e.Code {
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "USER_NOT_FOUND", "USER_DISABLED", "INVALID_ID_TOKEN":
		return true
	}
	return false
}

// parseProviderError splits "WEAK_PASSWORD : Password should be at least 6
// characters" into code and detail.
func parseProviderError(status int, message string) *ProviderError {
	code, detail, _ := strings.Cut(message, ":")
	return &ProviderError{
		Status: status,
		Code:   strings.TrimSpace(code),
		Detail: strings.TrimSpace(detail),
	}
}

package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork means the request never completed.
	ErrNetwork = errors.New("network failure")
	// ErrMalformed means the response body could not be parsed or failed
	// record validation.
	ErrMalformed = errors.New("malformed response")

	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is returned when the backend answers with a non-success status.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: server error: %s", e.Method, e.Path, http.StatusText(e.Code))
}

// Is maps well-known status codes onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	}
	return false
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

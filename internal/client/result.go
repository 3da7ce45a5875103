package client

import (
	"context"
	"net/http"
)

// State is the lifecycle of a fetch as a view sees it.
type State int

const (
	StateLoading State = iota
	StateFailed
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateFailed:
		return "failed"
	default:
		return "ready"
	}
}

// Result holds exactly one of: still loading, a failure, or data.
// An empty Data on StateReady means "no matches", not an error.
type Result[T any] struct {
	State State
	Data  T
	Err   error
}

// Pending returns a Result in the loading state.
func Pending[T any]() Result[T] {
	return Result[T]{State: StateLoading}
}

// Ready reports whether data is available.
func (r Result[T]) Ready() bool { return r.State == StateReady }

// Failed reports whether the fetch failed.
func (r Result[T]) Failed() bool { return r.State == StateFailed }

// Load runs fn once and folds its outcome into a Result.
func Load[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) Result[T] {
	data, err := fn(ctx)
	if err != nil {
		return Result[T]{State: StateFailed, Err: err}
	}
	return Result[T]{State: StateReady, Data: data}
}

// Fetch performs a single GET for path and decodes the body into T.
// There are no retries and no caching; each call is independent.
func Fetch[T any](ctx context.Context, c *Client, path string) Result[T] {
	return Load(ctx, func(ctx context.Context) (T, error) {
		var out T
		err := c.do(ctx, http.MethodGet, path, nil, &out)
		return out, err
	})
}

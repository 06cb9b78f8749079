package router

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrRouteNotFound indicates that no registered pattern matches the path for any method.
	ErrRouteNotFound = errors.New("route not found")

	// ErrMethodNotAllowed indicates that a pattern matches the path but has no handler for the method.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrInvalidPattern indicates that a pattern could not be registered.
	ErrInvalidPattern = errors.New("invalid route pattern")
)

// MatchError is returned by Match. It wraps ErrRouteNotFound or
// ErrMethodNotAllowed, so callers test it with errors.Is.
type MatchError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface
func (e *MatchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *MatchError) Unwrap() error {
	return e.Err
}

func invalidPattern(token, format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidPattern, "segment %q: %s", token, fmt.Sprintf(format, args...))
}

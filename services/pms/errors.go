package pms

import (
	"errors"
	"fmt"
)

// ErrInvalidResponseFormat marks a PMS response that is missing required
// fields. It is authoritative: never retried, never masked by stale fallback.
var ErrInvalidResponseFormat = errors.New("pms: invalid response format")

// AuthError means the PMS rejected our credentials. A bad credential is not a
// transient condition, so it bypasses every fallback path.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("pms: authentication failed (%d): %s", e.Status, e.Message)
}

// NetworkError covers transport-level and server-side failures that the
// resilience layer treats as expected and transient.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("pms: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError means the PMS rejected the request payload itself.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pms: invalid %s: %s", e.Field, e.Message)
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsExpectedFailure classifies errors that should count toward tripping the
// circuit breaker. Auth and validation failures are authoritative rejections
// and must not affect breaker state.
func IsExpectedFailure(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

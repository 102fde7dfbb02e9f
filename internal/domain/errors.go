package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrIncorrectLookupParameters signals filter tokens that cannot be applied to a field.
	ErrIncorrectLookupParameters = errors.New("incorrect lookup parameters")
	// ErrInvalidForward signals a malformed forwarded-values payload.
	ErrInvalidForward = errors.New("invalid forward payload")
	// ErrMissingText signals a create request without text.
	ErrMissingText = errors.New("missing text")
	// ErrInvalidPage signals a page parameter that is not a positive integer.
	ErrInvalidPage = errors.New("invalid page")
	// ErrForbidden signals a principal without the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrImproperlyConfigured signals an operator/programmer misconfiguration.
	ErrImproperlyConfigured = errors.New("improperly configured")
	// ErrNoReverseMatch signals a route name that could not be resolved.
	ErrNoReverseMatch = errors.New("no reverse match")
)

// LookupError wraps ErrIncorrectLookupParameters with the offending parameter and token.
type LookupError struct {
	Param string
	Token string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %s=%q: %v", ErrIncorrectLookupParameters.Error(), e.Param, e.Token, e.Err)
}

func (e *LookupError) Unwrap() []error { return []error{ErrIncorrectLookupParameters, e.Err} }

// NewLookupError creates a lookup error for a token that failed coercion.
func NewLookupError(param, token string, cause error) error {
	return &LookupError{Param: param, Token: token, Err: cause}
}

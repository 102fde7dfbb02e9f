package autofilter

import (
	"fmt"

	"github.com/kailas-cloud/autofilter/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrIncorrectLookupParameters = domain.ErrIncorrectLookupParameters
	ErrInvalidForward            = domain.ErrInvalidForward
	ErrMissingText               = domain.ErrMissingText
	ErrInvalidPage               = domain.ErrInvalidPage
	ErrForbidden                 = domain.ErrForbidden
	ErrNotFound                  = domain.ErrNotFound
	ErrImproperlyConfigured      = domain.ErrImproperlyConfigured
	ErrNoReverseMatch            = domain.ErrNoReverseMatch
)

var sentinelsByCode = map[string]error{
	"incorrect_lookup_parameters": ErrIncorrectLookupParameters,
	"invalid_forward":             ErrInvalidForward,
	"missing_text":                ErrMissingText,
	"invalid_page":                ErrInvalidPage,
	"forbidden":                   ErrForbidden,
	"not_found":                   ErrNotFound,
	"improperly_configured":       ErrImproperlyConfigured,
	"no_reverse_match":            ErrNoReverseMatch,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("autofilter: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the response code to its sentinel, if any.
func (e *APIError) Unwrap() error {
	return sentinelsByCode[e.Code]
}

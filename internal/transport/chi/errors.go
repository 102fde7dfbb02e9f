package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/domain"
	"github.com/kailas-cloud/autofilter/internal/logger"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest                ErrorCode = "bad_request"
	CodeIncorrectLookupParameters ErrorCode = "incorrect_lookup_parameters"
	CodeInvalidForward            ErrorCode = "invalid_forward"
	CodeMissingText               ErrorCode = "missing_text"
	CodeInvalidPage               ErrorCode = "invalid_page"
	CodeUnauthorized              ErrorCode = "unauthorized"
	CodeForbidden                 ErrorCode = "forbidden"
	CodeNotFound                  ErrorCode = "not_found"
	CodeMethodNotAllowed          ErrorCode = "method_not_allowed"
	CodeImproperlyConfigured      ErrorCode = "improperly_configured"
	CodeNoReverseMatch            ErrorCode = "no_reverse_match"
	CodeInternalError             ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrIncorrectLookupParameters, http.StatusBadRequest, CodeIncorrectLookupParameters),
	sentinelHandler(domain.ErrInvalidForward, http.StatusBadRequest, CodeInvalidForward),
	sentinelHandler(domain.ErrMissingText, http.StatusBadRequest, CodeMissingText),
	sentinelHandler(domain.ErrInvalidPage, http.StatusBadRequest, CodeInvalidPage),
	sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	sentinelHandler(domain.ErrImproperlyConfigured, http.StatusInternalServerError, CodeImproperlyConfigured),
	sentinelHandler(domain.ErrNoReverseMatch, http.StatusInternalServerError, CodeNoReverseMatch),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Lookup and forward errors carry only request-supplied values, so their
// details are kept.
func safeDomainMessage(err error) string {
	var le *domain.LookupError
	if errors.As(err, &le) {
		return fmt.Sprintf("%s: %s=%q", domain.ErrIncorrectLookupParameters, le.Param, le.Token)
	}
	if errors.Is(err, domain.ErrInvalidForward) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrIncorrectLookupParameters,
		domain.ErrMissingText,
		domain.ErrInvalidPage,
		domain.ErrForbidden,
		domain.ErrNotFound,
		domain.ErrImproperlyConfigured,
		domain.ErrNoReverseMatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

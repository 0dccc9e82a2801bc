// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// ErrorBody is the JSON shape for expected refusals.
type ErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// StatusForKind maps a denial kind to its HTTP status.
func StatusForKind(kind shared.Kind) int {
	switch kind {
	case shared.KindAuthentication:
		return http.StatusUnauthorized
	case shared.KindAccountState, shared.KindAuthorization, shared.KindDomainRule:
		return http.StatusForbidden
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses. Denials keep their
// stable code; anything else is a dependency failure and becomes an RFC7807 500.
func RespondError(w http.ResponseWriter, err error) {
	if d, ok := shared.AsDenial(err); ok {
		JSON(w, StatusForKind(d.Kind), ErrorBody{Error: string(d.Code), Message: d.Message})
		return
	}
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusUnprocessableEntity, ErrorBody{Error: string(shared.CodeValidation), Message: "Invalid input", Fields: verr.Fields})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Expected reports whether err is a refusal the caller can act on rather than
// a dependency failure.
func Expected(err error) bool {
	if _, ok := shared.AsDenial(err); ok {
		return true
	}
	var verr *shared.ValidationError
	return errors.As(err, &verr)
}

// Fail logs unexpected errors under op and writes the mapped response.
func Fail(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	if !Expected(err) && logger != nil {
		logger.Error(op+" failed", slog.Any("error", err))
	}
	RespondError(w, err)
}

package api

import (
	"errors"
	"net/http"

	"github.com/okian/rice/internal/adapters/records"
	"github.com/okian/rice/internal/adapters/repository"
	service "github.com/okian/rice/internal/app"
	"github.com/okian/rice/internal/domain/catalog"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error codes returned in error bodies and used as metric labels.
const (
	codeBadRequest       = "bad_request"
	codeForbidden        = "forbidden"
	codeNotFound         = "not_found"
	codeRevealNotAllowed = "reveal_not_allowed"
	codeConflict         = "conflict"
	codeUnavailable      = "unavailable"
	codeInternal         = "internal_error"
)

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, catalog.ErrInvalidPatch),
		errors.Is(err, catalog.ErrInvalidEntry):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrRevealNotAllowed):
		return http.StatusConflict, codeRevealNotAllowed
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, codeConflict
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, records.ErrUnavailable),
		errors.Is(err, records.ErrDisabled):
		return http.StatusServiceUnavailable, codeUnavailable
	}
	return http.StatusInternalServerError, codeInternal
}

// codeForStatus is the error code for a failure status written without
// writeError.
func codeForStatus(status int) string {
	switch status {
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusConflict:
		return codeConflict
	case http.StatusServiceUnavailable:
		return codeUnavailable
	}
	if status >= http.StatusInternalServerError {
		return codeInternal
	}
	return codeBadRequest
}

package api

import (
	"errors"
	"net/http"

	service "github.com/okian/gridpick/internal/app"
	"github.com/okian/gridpick/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Codes reported for errors that are not domain kinds.
const (
	codeBadRequest  = "bad_request"
	codeUnavailable = "unavailable"
	codeNotFound    = "not_found"
)

// statusFor maps an error kind to its HTTP status and body code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, codeUnavailable
	}

	kind := model.Kind(err)
	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		return http.StatusUnauthorized, kind
	case errors.Is(err, model.ErrNotAdmin):
		return http.StatusForbidden, kind
	case errors.Is(err, model.ErrRaceNotFound),
		errors.Is(err, model.ErrMatchupNotFound),
		errors.Is(err, model.ErrDriverNotFound):
		return http.StatusNotFound, kind
	case errors.Is(err, model.ErrNotNextRace),
		errors.Is(err, model.ErrSessionLocked),
		errors.Is(err, model.ErrAllSessionsLocked),
		errors.Is(err, model.ErrMissingTop5Prediction):
		return http.StatusConflict, kind
	case kind != model.KindInternal:
		return http.StatusUnprocessableEntity, kind
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

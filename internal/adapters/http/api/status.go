package api

import (
	"errors"
	"net/http"

	"github.com/okian/grouprank/internal/adapters/repository"
	service "github.com/okian/grouprank/internal/app"
	"github.com/okian/grouprank/internal/domain/model"
)

// statusFor maps an error onto an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrMissingUser):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrAlreadyMember):
		return http.StatusConflict, "already_member"
	case errors.Is(err, model.ErrNotMember):
		return http.StatusConflict, "not_member"
	case errors.Is(err, model.ErrDuplicateRating):
		return http.StatusConflict, "duplicate_rating"
	case errors.Is(err, model.ErrNotEligible):
		return http.StatusForbidden, "not_eligible"
	case errors.Is(err, model.ErrInvalidScore):
		return http.StatusUnprocessableEntity, "invalid_score"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

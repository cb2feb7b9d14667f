package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/alertarea/alertarea/internal/alertapi"
	"github.com/alertarea/alertarea/internal/api/models"
	"github.com/alertarea/alertarea/internal/api/response"
	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/customarea"
	"github.com/alertarea/alertarea/internal/validation"
)

// writeDomainError maps domain errors onto problem responses. Anything
// unmapped becomes a 500 without leaking the underlying message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *catalogue.NotFoundError
		valErr     *validation.ValidationError
		oobErr     *customarea.OutOfBoundsError
		radiusErr  *customarea.RadiusRangeError
		gatewayErr *alertapi.APIError
	)

	switch {
	case errors.As(err, &valErr):
		response.BadRequest(w, r, valErr.Reason, []models.FieldError{
			{Field: valErr.Field, Message: valErr.Reason},
		})
	case errors.As(err, &oobErr), errors.As(err, &radiusErr):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, broadcast.ErrEmptySelection):
		response.BadRequest(w, r, "selection must contain at least one area", nil)
	case errors.As(err, &notFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, broadcast.ErrBroadcastNotFound):
		response.NotFound(w, r, "broadcast not found")
	case errors.Is(err, broadcast.ErrNotEditable):
		response.Conflict(w, r, "broadcast is no longer editable")
	case errors.Is(err, broadcast.ErrInvalidTransition):
		response.Conflict(w, r, "broadcast cannot move to the requested status")
	case errors.Is(err, alertapi.ErrCircuitOpen), errors.As(err, &gatewayErr):
		response.ServiceUnavailable(w, r, "alert gateway unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "request cancelled")
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

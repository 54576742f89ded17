package api

import (
	"errors"
	"net/http"

	"barbershop/apperr"
	"barbershop/booking"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func statusFor(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrSlotConflict),
		errors.Is(err, apperr.ErrHasReservations),
		errors.Is(err, booking.ErrSubmissionInFlight),
		errors.Is(err, booking.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func describe(err error) errorResponse {
	var v *apperr.ValidationError
	switch {
	case errors.As(err, &v):
		return errorResponse{Error: apperr.Message(err), Fields: v.Fields}
	case errors.Is(err, booking.ErrSubmissionInFlight):
		return errorResponse{Error: booking.ErrSubmissionInFlight.Error()}
	case errors.Is(err, booking.ErrInvalidTransition):
		return errorResponse{Error: booking.ErrInvalidTransition.Error()}
	default:
		return errorResponse{Error: apperr.Message(err)}
	}
}

// Error writes err using the status and message of its kind. Internal and
// upstream failures are logged; their details never reach the client.
func (a *API) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	a.Response(w, status, describe(err))
}

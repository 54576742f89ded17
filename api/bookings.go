package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"barbershop/access"
	"barbershop/apperr"
	"barbershop/booking"

	"github.com/google/uuid"
)

type bookingResponse struct {
	ID      string           `json:"id"`
	Booking booking.Snapshot `json:"booking"`
}

type bookingErrorResponse struct {
	errorResponse
	Booking booking.Snapshot `json:"booking"`
}

// workflow loads the caller's booking named in the path.
func (a *API) workflow(w http.ResponseWriter, r *http.Request) (uuid.UUID, *booking.Workflow, bool) {
	id, ok := pathID(r)
	if !ok {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid booking ID"})
		return uuid.Nil, nil, false
	}
	flow, err := a.bookings.Get(id, access.UserFromContext(r.Context()))
	if err != nil {
		a.Error(w, r, err)
		return uuid.Nil, nil, false
	}
	return id, flow, true
}

// step reports the outcome of a workflow action along with the workflow's
// state afterwards, so clients can re-render the step they landed on.
func (a *API) step(w http.ResponseWriter, r *http.Request, id uuid.UUID, flow *booking.Workflow, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			a.Error(w, r, err)
			return
		}
		a.Response(w, status, bookingErrorResponse{errorResponse: describe(err), Booking: flow.Snapshot()})
		return
	}
	a.Response(w, http.StatusOK, bookingResponse{ID: id.String(), Booking: flow.Snapshot()})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (a *API) startBooking(w http.ResponseWriter, r *http.Request) {
	u, err := a.authorize(r, access.CreateReservation, false)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	id, flow := a.bookings.Start(u)
	a.Response(w, http.StatusCreated, bookingResponse{ID: id.String(), Booking: flow.Snapshot()})
}

func (a *API) getBooking(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}
	a.step(w, r, id, flow, nil)
}

// abandonBooking discards a booking in progress. Nothing was stored for it.
func (a *API) abandonBooking(w http.ResponseWriter, r *http.Request) {
	id, _, ok := a.workflow(w, r)
	if !ok {
		return
	}
	a.bookings.Remove(id)
	a.Response(w, http.StatusNoContent, nil)
}

type selectServiceRequest struct {
	ServiceID string `json:"service_id"`
}

func (a *API) selectBookingService(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}
	var req selectServiceRequest
	if !a.decode(w, r, &req) {
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		a.step(w, r, id, flow, apperr.Validation("service ID is invalid"))
		return
	}
	a.step(w, r, id, flow, flow.SelectService(r.Context(), serviceID))
}

type selectProviderRequest struct {
	ProviderID string `json:"provider_id"`
}

func (a *API) selectBookingProvider(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}
	var req selectProviderRequest
	if !a.decode(w, r, &req) {
		return
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		a.step(w, r, id, flow, apperr.Validation("provider ID is invalid"))
		return
	}
	a.step(w, r, id, flow, flow.SelectProvider(r.Context(), providerID))
}

func (a *API) getBookingSlots(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}
	_, err := flow.Slots(r.Context(), r.URL.Query().Get("date"))
	a.step(w, r, id, flow, err)
}

type selectDateTimeRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (a *API) selectBookingDateTime(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}
	var req selectDateTimeRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.step(w, r, id, flow, flow.SelectDateTime(r.Context(), req.Date, req.Time))
}

type contactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *API) setBookingContact(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.step(w, r, id, flow, flow.SetContact(req.Name, req.Email))
}

func (a *API) nextBookingStep(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}
	a.step(w, r, id, flow, flow.Next(r.Context()))
}

func (a *API) previousBookingStep(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}
	a.step(w, r, id, flow, flow.Back())
}

// confirmBooking commits the booking. A committed booking is dropped from
// the registry; the reservation is in the response.
func (a *API) confirmBooking(w http.ResponseWriter, r *http.Request) {
	id, flow, ok := a.workflow(w, r)
	if !ok {
		return
	}

	created, err := flow.Confirm(r.Context())
	if err != nil {
		if errors.Is(err, booking.ErrSubmissionInFlight) {
			a.Error(w, r, err)
			return
		}
		a.step(w, r, id, flow, err)
		return
	}

	a.bookings.Remove(id)
	a.Response(w, http.StatusCreated, created)
}

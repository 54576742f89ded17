package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"barbershop/access"
	"barbershop/agenda"
	"barbershop/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type createReservationRequest struct {
	ServiceID    string `json:"service_id"`
	ProviderID   string `json:"provider_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
}

// createReservation books in one request by running every workflow step
// with the submitted choices.
func (a *API) createReservation(w http.ResponseWriter, r *http.Request) {
	u, err := a.authorize(r, access.CreateReservation, false)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		a.Error(w, r, apperr.Validation("service ID is invalid"))
		return
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		a.Error(w, r, apperr.Validation("provider ID is invalid"))
		return
	}

	flow := a.bookings.Detached(u)
	ctx := r.Context()
	if err := flow.SelectService(ctx, serviceID); err != nil {
		a.Error(w, r, err)
		return
	}
	if err := flow.SelectProvider(ctx, providerID); err != nil {
		a.Error(w, r, err)
		return
	}
	if err := flow.SelectDateTime(ctx, req.Date, req.Time); err != nil {
		a.Error(w, r, err)
		return
	}
	if !u.Authenticated() {
		if err := flow.SetContact(req.ContactName, req.ContactEmail); err != nil {
			a.Error(w, r, err)
			return
		}
	}

	created, err := flow.Confirm(ctx)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, created)
}

func (a *API) deleteReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid reservation ID"})
		return
	}
	u, err := a.authorize(r, access.DeleteReservation, true)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	if err := a.reservations().DeleteReservation(r.Context(), id); err != nil {
		a.Error(w, r, err)
		return
	}
	a.logger.Info("reservation deleted", zap.String("reservation_id", id.String()), zap.String("by", u.AccountID))
	a.Response(w, http.StatusNoContent, nil)
}

type cancelReservationRequest struct {
	Token string `json:"token"`
}

// cancelReservation lets a guest cancel with the token from their
// confirmation mail. The token may come in the body or the query string.
func (a *API) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid reservation ID"})
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" && r.ContentLength != 0 {
		var req cancelReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		token = req.Token
	}
	if token == "" {
		a.Error(w, r, apperr.Validation("cancellation token is required"))
		return
	}

	if err := a.reservations().CancelWithToken(r.Context(), id, token); err != nil {
		a.Error(w, r, err)
		return
	}
	a.logger.Info("reservation cancelled by guest", zap.String("reservation_id", id.String()))
	a.Response(w, http.StatusNoContent, nil)
}

func (a *API) getMyReservations(w http.ResponseWriter, r *http.Request) {
	u, err := a.authorize(r, access.ViewOwnHistory, false)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	rs, err := a.reservations().ListByClient(r.Context(), u.AccountID)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, agenda.Client(rs, u.AccountID, a.today()))
}

func cancelURL(base string, id uuid.UUID, token string) string {
	return fmt.Sprintf("%s/cancel?reservation=%s&token=%s", base, id, url.QueryEscape(token))
}

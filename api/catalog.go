package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"barbershop/access"
	"barbershop/apperr"
	"barbershop/catalog"
	"barbershop/photos"
	"barbershop/reservation"

	"go.uber.org/zap"
)

const maxPhotoBytes = 5 << 20

type getServicesResponse struct {
	Services []catalog.Service `json:"services"`
}

func (a *API) getServices(w http.ResponseWriter, r *http.Request) {
	services, err := a.catalog().ListServices(r.Context())
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, getServicesResponse{Services: services})
}

type createServiceRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price_cents"`
	Category string `json:"category"`
}

func (a *API) createService(w http.ResponseWriter, r *http.Request) {
	if _, err := a.authorize(r, access.ManageCatalog, true); err != nil {
		a.Error(w, r, err)
		return
	}

	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	s, err := a.catalog().CreateService(r.Context(), catalog.Service{
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price,
		Category: strings.TrimSpace(req.Category),
	})
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, s)
}

type getProvidersResponse struct {
	Providers []catalog.Provider `json:"providers"`
}

func (a *API) getProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := a.catalog().ListProviders(r.Context())
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, getProvidersResponse{Providers: providers})
}

type createProviderRequest struct {
	DisplayName     string  `json:"display_name"`
	LinkedAccountID *string `json:"linked_account_id"`
}

func (a *API) createProvider(w http.ResponseWriter, r *http.Request) {
	if _, err := a.authorize(r, access.CreateProvider, true); err != nil {
		a.Error(w, r, err)
		return
	}

	var req createProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.LinkedAccountID != nil && strings.TrimSpace(*req.LinkedAccountID) == "" {
		req.LinkedAccountID = nil
	}

	p, err := a.catalog().CreateProvider(r.Context(), catalog.Provider{
		DisplayName:     strings.TrimSpace(req.DisplayName),
		LinkedAccountID: req.LinkedAccountID,
	})
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusCreated, p)
}

type updateProviderRequest struct {
	DisplayName string  `json:"display_name"`
	PhotoRef    *string `json:"photo_ref"`
}

// updateProvider edits a provider's name and, when given, its photo URL.
func (a *API) updateProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid provider ID"})
		return
	}
	u, err := a.authorize(r, access.CreateProvider, true)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	var req updateProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	accessor := a.catalog()
	p, err := accessor.GetProvider(r.Context(), id)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	p.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.PhotoRef != nil {
		p.PhotoRef = strings.TrimSpace(*req.PhotoRef)
	}

	if err := accessor.UpdateProvider(r.Context(), p); err != nil {
		a.Error(w, r, err)
		return
	}
	a.logger.Info("provider updated", zap.String("provider_id", id.String()), zap.String("by", u.AccountID))
	a.Response(w, http.StatusOK, p)
}

func (a *API) deleteProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid provider ID"})
		return
	}
	u, err := a.authorize(r, access.DeleteProvider, true)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	if err := a.reservations().DeleteProvider(r.Context(), id); err != nil {
		a.Error(w, r, err)
		return
	}
	a.logger.Info("provider deleted", zap.String("provider_id", id.String()), zap.String("by", u.AccountID))
	a.Response(w, http.StatusNoContent, nil)
}

func (a *API) uploadProviderPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid provider ID"})
		return
	}
	if _, err := a.authorize(r, access.UploadPhoto, true); err != nil {
		a.Error(w, r, err)
		return
	}
	if a.photos == nil {
		a.Response(w, http.StatusServiceUnavailable, errorResponse{Error: photos.ErrDisabled.Error()})
		return
	}

	accessor := a.catalog()
	if _, err := accessor.GetProvider(r.Context(), id); err != nil {
		a.Error(w, r, err)
		return
	}

	contentType := r.Header.Get("Content-Type")
	key, err := photos.ProviderPhotoKey(id, contentType)
	if err != nil {
		a.Error(w, r, apperr.Validation("photo must be a JPEG, PNG or WebP image"))
		return
	}

	url, err := a.photos.Upload(r.Context(), key, http.MaxBytesReader(w, r.Body, maxPhotoBytes), contentType)
	if err != nil {
		a.logger.Error("upload provider photo", zap.String("provider_id", id.String()), zap.Error(err))
		a.Error(w, r, apperr.Upstream("upload photo", err))
		return
	}

	if err := accessor.SetProviderPhoto(r.Context(), id, url); err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, map[string]string{"photo_ref": url})
}

type slotsResponse struct {
	ProviderID string   `json:"provider_id"`
	Date       string   `json:"date"`
	Slots      []string `json:"slots"`
}

func (a *API) getProviderSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid provider ID"})
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = a.today().Format(reservation.DateLayout)
	}
	if _, err := reservation.ParseDate(date); err != nil {
		a.Error(w, r, err)
		return
	}

	slots, err := a.engine().AvailableSlots(r.Context(), id, date)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, slotsResponse{ProviderID: id.String(), Date: date, Slots: slots})
}

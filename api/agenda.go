package api

import (
	"net/http"
	"time"

	"barbershop/access"
	"barbershop/agenda"
	"barbershop/apperr"
	"barbershop/reservation"
	"barbershop/revenue"

	"github.com/google/uuid"
)

// agendaProvider picks whose agenda to show: a provider always sees their
// own, an admin names one with ?provider_id=.
func (a *API) agendaProvider(r *http.Request, u access.User) (uuid.UUID, error) {
	if u.Role == access.Admin {
		raw := r.URL.Query().Get("provider_id")
		if raw == "" {
			return uuid.Nil, apperr.Validation("provider_id is required")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, apperr.Validation("provider_id is invalid")
		}
		return id, nil
	}

	p, err := a.catalog().GetProviderByAccount(r.Context(), u.AccountID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

type agendaResponse struct {
	ProviderID   string                    `json:"provider_id"`
	Reservations []reservation.Reservation `json:"reservations"`
}

func (a *API) getAgendaToday(w http.ResponseWriter, r *http.Request) {
	u, err := a.authorize(r, access.ViewProviderAgenda, false)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	providerID, err := a.agendaProvider(r, u)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	now := a.today()
	day := now.Format(reservation.DateLayout)
	rs, err := a.reservations().ListBetween(r.Context(), day, day)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, agendaResponse{
		ProviderID:   providerID.String(),
		Reservations: agenda.Today(rs, providerID, now),
	})
}

func (a *API) getAgendaMine(w http.ResponseWriter, r *http.Request) {
	u, err := a.authorize(r, access.ViewProviderAgenda, false)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	providerID, err := a.agendaProvider(r, u)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	rs, err := a.reservations().ListByProvider(r.Context(), providerID)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, agendaResponse{
		ProviderID:   providerID.String(),
		Reservations: agenda.Mine(rs, providerID),
	})
}

type allAgendaResponse struct {
	Days []agenda.Day `json:"days"`
}

func (a *API) getAgendaAll(w http.ResponseWriter, r *http.Request) {
	if _, err := a.authorize(r, access.ViewAllAgenda, false); err != nil {
		a.Error(w, r, err)
		return
	}

	rs, err := a.reservations().ListAll(r.Context())
	if err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusOK, allAgendaResponse{Days: agenda.All(rs)})
}

type revenueLine struct {
	Service string  `json:"service"`
	Amount  int64   `json:"amount_cents"`
	Share   float64 `json:"share"`
}

type revenueResponse struct {
	Window    revenue.Window `json:"window"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Total     int64          `json:"total_cents"`
	Count     int            `json:"count"`
	ByService []revenueLine  `json:"by_service"`
	Top       *revenueLine   `json:"top,omitempty"`
}

func (a *API) getRevenue(w http.ResponseWriter, r *http.Request) {
	if _, err := a.authorize(r, access.ViewRevenue, false); err != nil {
		a.Error(w, r, err)
		return
	}
	window, err := revenue.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		a.Error(w, r, err)
		return
	}

	now := a.today()
	from, to := windowBounds(window, now)
	rs, err := a.reservations().ListBetween(r.Context(), from, to)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	summary := revenue.Aggregate(rs, window, now)
	resp := revenueResponse{
		Window:    window,
		From:      from,
		To:        to,
		Total:     summary.Total,
		Count:     summary.Count,
		ByService: []revenueLine{},
	}
	for _, g := range summary.SortedByAmount() {
		resp.ByService = append(resp.ByService, revenueLine{Service: g.Service, Amount: g.Amount, Share: summary.Share(g.Amount)})
	}
	if top, ok := summary.Top(); ok {
		resp.Top = &revenueLine{Service: top.Service, Amount: top.Amount, Share: summary.Share(top.Amount)}
	}
	a.Response(w, http.StatusOK, resp)
}

// windowBounds is the inclusive date range covered by w around now.
func windowBounds(w revenue.Window, now time.Time) (string, string) {
	y, m, d := now.Date()
	var from, to time.Time
	switch w {
	case revenue.Year:
		from = time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
		to = time.Date(y, time.December, 31, 0, 0, 0, 0, now.Location())
	case revenue.Month:
		from = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		to = from.AddDate(0, 1, -1)
	default:
		from = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		to = from
	}
	return from.Format(reservation.DateLayout), to.Format(reservation.DateLayout)
}

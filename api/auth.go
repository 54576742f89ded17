package api

import (
	"net/http"

	"barbershop/access"
)

// authenticate puts the caller on the request context. Requests without a
// token continue as guests.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		u, err := a.auth.CurrentUser(r)
		if err != nil {
			a.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(access.WithUser(r.Context(), u)))
	})
}

// authorize checks op for the caller and, for signed-in callers of
// sensitive operations, that their session is still valid.
func (a *API) authorize(r *http.Request, op access.Operation, sensitive bool) (access.User, error) {
	u := access.UserFromContext(r.Context())
	if err := access.Check(op, u); err != nil {
		return u, err
	}
	if sensitive && u.Authenticated() && a.auth != nil {
		if err := a.auth.ValidateSession(r.Context(), u); err != nil {
			return u, err
		}
	}
	return u, nil
}

type meResponse struct {
	User  access.User   `json:"user"`
	Views []access.View `json:"agenda_views"`
}

func (a *API) getMe(w http.ResponseWriter, r *http.Request) {
	u := access.UserFromContext(r.Context())
	a.Response(w, http.StatusOK, meResponse{User: u, Views: access.AgendaViews(u)})
}

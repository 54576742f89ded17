package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"barbershop/access"
	"barbershop/apperr"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type setRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) setAccountRole(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(mux.Vars(r)["id"])
	u, err := a.authorize(r, access.ChangeRole, true)
	if err != nil {
		a.Error(w, r, err)
		return
	}

	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.Response(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	role, ok := access.ParseAssignableRole(req.Role)
	if !ok {
		a.Error(w, r, apperr.Validation("role must be client or provider"))
		return
	}
	if accountID == u.AccountID {
		a.Error(w, r, apperr.Validation("admins cannot change their own role"))
		return
	}

	if err := a.roles.SetRole(r.Context(), accountID, role, a.now()); err != nil {
		a.Error(w, r, err)
		return
	}
	a.logger.Info("account role changed",
		zap.String("account_id", accountID), zap.Stringer("role", role), zap.String("by", u.AccountID))
	a.Response(w, http.StatusOK, map[string]string{"account_id": accountID, "role": role.String()})
}

func (a *API) revokeAccount(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(mux.Vars(r)["id"])
	u, err := a.authorize(r, access.ChangeRole, true)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	if accountID == u.AccountID {
		a.Error(w, r, apperr.Validation("admins cannot revoke their own sessions"))
		return
	}

	if err := a.roles.Revoke(r.Context(), accountID, a.now()); err != nil {
		a.Error(w, r, err)
		return
	}
	a.logger.Info("account sessions revoked", zap.String("account_id", accountID), zap.String("by", u.AccountID))
	a.Response(w, http.StatusNoContent, nil)
}

func (a *API) restoreAccount(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(mux.Vars(r)["id"])
	if _, err := a.authorize(r, access.ChangeRole, true); err != nil {
		a.Error(w, r, err)
		return
	}

	if err := a.roles.Restore(r.Context(), accountID, a.now()); err != nil {
		a.Error(w, r, err)
		return
	}
	a.Response(w, http.StatusNoContent, nil)
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/audit"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Message string         `json:"message"`
	User    auth.Summary   `json:"user"`
	Tokens  auth.TokenPair `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.auth.Login(r.Context(), req.Email, req.Password, originOf(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.record(w, r, audit.Record{
				Action:      "failed_login",
				TargetTable: "users",
				After:       map[string]any{"email": req.Email},
			})
		}
		handleError(w, r, err)
		return
	}

	a.record(w, r, audit.Record{
		ActorID:     audit.ID(session.User.ID),
		Action:      "successful_login",
		TargetTable: "users",
		TargetID:    audit.ID(session.User.ID),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Message: "login successful",
		User:    session.User.Summary(),
		Tokens:  session.Tokens,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, user, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleError(w, r, err)
		return
	}

	a.record(w, r, audit.Record{
		ActorID:     audit.ID(user.ID),
		Action:      "token_refreshed",
		TargetTable: "users",
		TargetID:    audit.ID(user.ID),
	})
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.Profile(r.Context(), caller(r).UserID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", a.historyLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	records, err := a.audit.HistoryFor(r.Context(), caller(r).UserID, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": nonNil(records)})
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"role":        id.Role,
		"permissions": a.gateway.Registry().PermissionsOf(id.Role),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

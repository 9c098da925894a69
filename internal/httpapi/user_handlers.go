package httpapi

import (
	"fmt"
	"net/http"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/audit"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"omitempty,oneof=admin manager employee"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Address   string `json:"address" validate:"omitempty,max=255"`
}

type updateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin manager employee"`
	IsActive  *bool   `json:"is_active"`
	Password  *string `json:"password"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		handleError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}
	users, err := a.users.List(r.Context(), limit, offset)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": nonNil(users)})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.users.Create(r.Context(), auth.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      auth.Role(req.Role),
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	a.record(w, r, audit.Record{
		ActorID:     audit.ID(caller(r).UserID),
		Action:      "user_created",
		TargetTable: "users",
		TargetID:    audit.ID(user.ID),
		After:       userValues(user),
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user created",
		"user":    user,
	})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !a.authorize(w, r, auth.OwnsUserData(id)) {
		return
	}
	user, err := a.users.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	self := caller(r)
	checks := []auth.Check{auth.OwnsUserData(id)}
	if !a.gateway.Registry().HasPermission(self.Role, auth.PermUserUpdate) {
		checks = append(checks, ownAccountOnly(id))
	}
	if !a.authorize(w, r, checks...) {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// role and activation changes would let a caller escalate; password resets
	// of another account are an admin action too.
	if req.Role != nil || req.IsActive != nil || (req.Password != nil && id != self.UserID) {
		if !a.authorize(w, r, a.gateway.Role(auth.RoleAdmin)) {
			return
		}
	}

	before, err := a.users.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	ch := auth.UserChanges{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		IsActive:  req.IsActive,
		Password:  req.Password,
	}
	if req.Role != nil {
		role := auth.Role(*req.Role)
		ch.Role = &role
	}
	after, err := a.users.Update(r.Context(), id, ch)
	if err != nil {
		handleError(w, r, err)
		return
	}

	oldValues, newValues := diffUser(before, after)
	if req.Password != nil {
		newValues["password_changed"] = true
	}
	a.record(w, r, audit.Record{
		ActorID:     audit.ID(self.UserID),
		Action:      "user_updated",
		TargetTable: "users",
		TargetID:    audit.ID(id),
		Before:      oldValues,
		After:       newValues,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "user updated",
		"user":    after,
	})
}

func ownAccountOnly(target int64) auth.Check {
	return func(id auth.IdentityContext) error {
		if id.UserID != target {
			return fmt.Errorf("%w: can only update own account", auth.ErrForbidden)
		}
		return nil
	}
}

func userValues(u auth.User) map[string]any {
	return map[string]any{
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       string(u.Role),
		"phone":      u.Phone,
		"address":    u.Address,
		"is_active":  u.IsActive,
	}
}

// diffUser returns the fields that changed, keyed by their JSON names.
func diffUser(before, after auth.User) (map[string]any, map[string]any) {
	oldAll, newAll := userValues(before), userValues(after)
	oldValues := make(map[string]any)
	newValues := make(map[string]any)
	for k, v := range newAll {
		if oldAll[k] != v {
			oldValues[k] = oldAll[k]
			newValues[k] = v
		}
	}
	return oldValues, newValues
}

package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/audit"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/ids"
)

type progressRequest struct {
	Progress *int `json:"progress" validate:"required,min=0,max=100"`
}

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{Action: strings.TrimSpace(r.URL.Query().Get("action"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("actor_id")); raw != "" {
		actor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || actor <= 0 {
			writeError(w, r, http.StatusBadRequest, "actor_id must be a positive integer")
			return
		}
		q.ActorID = &actor
	}
	limit, err := queryInt(r, "limit", a.historyLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	q.Limit = limit
	if before := strings.TrimSpace(r.URL.Query().Get("before")); before != "" {
		if _, err := ids.Time(before); err != nil {
			writeError(w, r, http.StatusBadRequest, "before must be an audit record id")
			return
		}
		q.Before = before
	}

	records, err := a.audit.History(r.Context(), q)
	if err != nil {
		handleError(w, r, err)
		return
	}
	body := map[string]any{"records": nonNil(records)}
	if n := len(records); n > 0 && n == audit.ClampLimit(q.Limit, a.historyLimit) {
		body["next_before"] = records[n-1].ID
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleProjectProgress(w http.ResponseWriter, r *http.Request) {
	if a.projects == nil {
		writeError(w, r, http.StatusNotImplemented, "projects are not configured")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req progressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ref, err := a.projects.ProjectRef(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !a.authorize(w, r, auth.ModifiesProject(ref)) {
		return
	}
	if err := a.projects.SetProgress(r.Context(), id, *req.Progress); err != nil {
		handleError(w, r, err)
		return
	}

	a.record(w, r, audit.Record{
		ActorID:     audit.ID(caller(r).UserID),
		Action:      "project_progress_updated",
		TargetTable: "projects",
		TargetID:    audit.ID(id),
		After:       map[string]any{"progress": *req.Progress},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "progress updated",
		"progress": *req.Progress,
	})
}

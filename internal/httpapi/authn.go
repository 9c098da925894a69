package httpapi

import (
	"net/http"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/audit"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

const authHeader = "Authorization"

// guard authenticates the bearer token, runs checks and hands the caller's
// identity to next through the request context.
func (a *API) guard(next http.HandlerFunc, checks ...auth.Check) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(authHeader)
		id, err := a.gateway.Gate(header, checks...)
		if err != nil {
			handleError(w, r, err)
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), id)
		if token, err := auth.ExtractBearer(header); err == nil {
			ctx = auth.ContextWithToken(ctx, token)
		}
		next(w, r.WithContext(ctx))
	})
}

// caller returns the identity guard stored. Handlers behind guard always have one.
func caller(r *http.Request) auth.IdentityContext {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

// authorize runs record-level checks once the target is known. It writes the
// error response and returns false when a check fails.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, checks ...auth.Check) bool {
	if err := a.gateway.Authorize(caller(r), checks...); err != nil {
		handleError(w, r, err)
		return false
	}
	return true
}

// record queues an audit fact stamped with the request origin. A dropped
// record does not fail the request; the response carries a Warning header.
func (a *API) record(w http.ResponseWriter, r *http.Request, rec audit.Record) {
	origin := originOf(r)
	rec.OriginIP = origin.IP
	rec.UserAgent = origin.UserAgent
	if err := a.audit.Record(r.Context(), rec); err != nil {
		w.Header().Add("Warning", `199 - "audit record not written"`)
	}
}

// Package httpapi exposes the authentication, user and audit endpoints over
// HTTP and guards every protected route through auth.Gateway.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/audit"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/obs"
)

const serviceName = "enterprise-pro"

// ReadyProbe checks a dependency the service cannot work without.
type ReadyProbe interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API is built from. Projects and Ready are optional.
type Deps struct {
	Auth     *auth.Service
	Users    *auth.UserService
	Gateway  *auth.Gateway
	Audit    *audit.Trail
	Projects auth.ProjectStore
	Ready    ReadyProbe
}

// API is the HTTP layer.
type API struct {
	mux      *http.ServeMux
	auth     *auth.Service
	users    *auth.UserService
	gateway  *auth.Gateway
	audit    *audit.Trail
	projects auth.ProjectStore
	ready    ReadyProbe

	version      string
	rateBurst    int
	ratePerSec   float64
	corsOrigins  []string
	maxBodyBytes int64
	historyLimit int
	proxyList    []string
	proxies      []*net.IPNet
}

// Option tunes an API.
type Option func(*API)

func WithVersion(v string) Option { return func(a *API) { a.version = v } }

// WithLoginRateLimit sets the per-IP bucket guarding login and refresh.
func WithLoginRateLimit(burst int, perSecond float64) Option {
	return func(a *API) {
		a.rateBurst = burst
		a.ratePerSec = perSecond
	}
}

func WithCORSOrigins(origins ...string) Option {
	return func(a *API) { a.corsOrigins = origins }
}

func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

func WithHistoryLimit(n int) Option { return func(a *API) { a.historyLimit = n } }

// WithTrustedProxies lists the peers (CIDR or address) whose X-Forwarded-For
// header is believed. Without it the socket peer is the client.
func WithTrustedProxies(cidrs ...string) Option {
	return func(a *API) { a.proxyList = cidrs }
}

func New(d Deps, opts ...Option) (*API, error) {
	switch {
	case d.Auth == nil:
		return nil, errors.New("httpapi: auth service is required")
	case d.Users == nil:
		return nil, errors.New("httpapi: user service is required")
	case d.Gateway == nil:
		return nil, errors.New("httpapi: gateway is required")
	case d.Audit == nil:
		return nil, errors.New("httpapi: audit trail is required")
	}
	a := &API{
		mux:          http.NewServeMux(),
		auth:         d.Auth,
		users:        d.Users,
		gateway:      d.Gateway,
		audit:        d.Audit,
		projects:     d.Projects,
		ready:        d.Ready,
		version:      "dev",
		rateBurst:    10,
		ratePerSec:   1,
		maxBodyBytes: 1 << 20,
		historyLimit: audit.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	proxies, err := ParseTrustedProxies(a.proxyList)
	if err != nil {
		return nil, err
	}
	a.proxies = proxies
	a.routes()
	return a, nil
}

func (a *API) routes() {
	perm := a.gateway.Permission

	// health/ready
	a.mux.HandleFunc("GET /api/health", a.Health)
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.Handle("POST /api/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), a.rateBurst, a.ratePerSec))
	a.mux.Handle("POST /api/auth/refresh", RateLimit(http.HandlerFunc(a.handleRefresh), a.rateBurst, a.ratePerSec))
	a.mux.Handle("GET /api/auth/profile", a.guard(a.handleProfile))
	a.mux.Handle("GET /api/auth/activity", a.guard(a.handleActivity))
	a.mux.Handle("GET /api/permissions", a.guard(a.handlePermissions))

	a.mux.Handle("GET /api/users", a.guard(a.handleListUsers, perm(auth.PermUserRead)))
	a.mux.Handle("POST /api/users", a.guard(a.handleCreateUser, perm(auth.PermUserCreate)))
	a.mux.Handle("GET /api/users/{id}", a.guard(a.handleGetUser, perm(auth.PermUserRead)))
	a.mux.Handle("PUT /api/users/{id}", a.guard(a.handleUpdateUser,
		a.gateway.AnyPermission(auth.PermUserUpdate, auth.PermUserUpdateOwn)))

	a.mux.Handle("PUT /api/projects/{id}/progress", a.guard(a.handleProjectProgress, perm(auth.PermProjectUpdate)))

	a.mux.Handle("GET /api/audit", a.guard(a.handleAuditList, perm(auth.PermAuditRead)))
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = obs.Instrument(h)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = Recover(h)
	h = RealIP(h, a.proxies)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   a.version,
	})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready.Ping(ctx); err != nil {
			obs.Logger().Error().Err(err).
				Str("request_id", audit.RequestIDFromContext(r.Context())).
				Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

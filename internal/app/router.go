package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/panelkit/panel/internal/auth"
	"github.com/panelkit/panel/internal/gate"
	"github.com/panelkit/panel/internal/menus"
	"github.com/panelkit/panel/internal/observability"
	"github.com/panelkit/panel/internal/platform/httpx"
	"github.com/panelkit/panel/internal/roles"
	"github.com/panelkit/panel/internal/shared"
	"github.com/panelkit/panel/internal/sse"
	"github.com/panelkit/panel/internal/users"
	"github.com/panelkit/panel/jobs"
)

// HealthCheck reports whether a backing store is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Gate          *gate.Gate
	AuthHandler   *auth.Handler
	UsersHandler  *users.Handler
	RolesHandler  *roles.Handler
	MenusHandler  *menus.Handler
	StreamHandler *sse.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
	HealthChecks  map[string]HealthCheck
}

// Endpoint binds a handler to a path and its access policy.
type Endpoint struct {
	Method  string
	Pattern string
	Policy  gate.Route
	Handler http.HandlerFunc
	// Credential endpoints get the stricter rate limit.
	Credential bool
}

// Endpoints lists every API endpoint.
func Endpoints(p RouterParams) []Endpoint {
	return []Endpoint{
		{http.MethodPost, "/api/auth/login", gate.Open(), p.AuthHandler.Login, true},
		{http.MethodPost, "/api/auth/register", gate.Open(), p.AuthHandler.Register, true},

		{http.MethodGet, "/api/account/profile", gate.Authenticated(), p.AuthHandler.Profile, false},
		{http.MethodGet, "/api/account/permissions", gate.Authenticated(), p.AuthHandler.Permissions, false},
		{http.MethodGet, "/api/account/menus", gate.Authenticated(), p.MenusHandler.AccountMenus, false},
		{http.MethodPost, "/api/account/password", gate.Authenticated(), p.AuthHandler.ChangePassword, true},
		{http.MethodGet, "/api/account/logout", gate.Authenticated(), p.AuthHandler.Logout, false},

		{http.MethodGet, "/api/system/users", gate.Protected(shared.PermUserList), p.UsersHandler.List, false},
		{http.MethodGet, "/api/system/users/{id}", gate.Protected(shared.PermUserRead), p.UsersHandler.Get, false},
		{http.MethodPost, "/api/system/users", gate.Protected(shared.PermUserCreate), p.UsersHandler.Create, false},
		{http.MethodPut, "/api/system/users/{id}/status", gate.Protected(shared.PermUserUpdate), p.UsersHandler.UpdateStatus, false},
		{http.MethodPut, "/api/system/users/{id}/roles", gate.Protected(shared.PermUserUpdate), p.UsersHandler.AssignRoles, false},
		{http.MethodPut, "/api/system/users/{id}/password", gate.Protected(shared.PermUserPassword), p.UsersHandler.ResetPassword, false},
		{http.MethodPost, "/api/system/users/disable", gate.Protected(shared.PermUserUpdate), p.UsersHandler.Disable, false},
		{http.MethodPost, "/api/system/users/delete", gate.Protected(shared.PermUserDelete), p.UsersHandler.Delete, false},

		{http.MethodGet, "/api/system/roles", gate.Protected(shared.PermRoleList), p.RolesHandler.List, false},
		{http.MethodGet, "/api/system/roles/{id}", gate.Protected(shared.PermRoleRead), p.RolesHandler.Get, false},
		{http.MethodPost, "/api/system/roles", gate.Protected(shared.PermRoleCreate), p.RolesHandler.Create, false},
		{http.MethodPut, "/api/system/roles/{id}", gate.Protected(shared.PermRoleUpdate), p.RolesHandler.Update, false},
		{http.MethodDelete, "/api/system/roles/{id}", gate.Protected(shared.PermRoleDelete), p.RolesHandler.Delete, false},

		{http.MethodGet, "/api/system/menus", gate.Protected(shared.PermMenuList), p.MenusHandler.Tree, false},
		{http.MethodGet, "/api/system/menus/{id}", gate.Protected(shared.PermMenuRead), p.MenusHandler.Get, false},
		{http.MethodPost, "/api/system/menus", gate.Protected(shared.PermMenuCreate), p.MenusHandler.Create, false},
		{http.MethodPut, "/api/system/menus/{id}", gate.Protected(shared.PermMenuUpdate), p.MenusHandler.Update, false},
		{http.MethodDelete, "/api/system/menus/{id}", gate.Protected(shared.PermMenuDelete), p.MenusHandler.Delete, false},

		{http.MethodGet, "/api/system/jobs/health", gate.Protected(shared.PermTaskList), p.JobHandler.Health, false},
		{http.MethodPost, "/api/system/permissions/refresh", gate.Protected(shared.PermPermissionRefresh), p.JobHandler.RefreshPermissions, false},

		{http.MethodGet, "/api/sse/{uid}", gate.Stream(), p.StreamHandler.Stream, false},
	}
}

// NewRouter constructs the chi.Router with panel defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Write(w, http.StatusNotFound, httpx.Envelope{Code: httpx.CodeNotFound, Message: "resource not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Write(w, http.StatusMethodNotAllowed, httpx.Envelope{Code: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})

	r.Get("/healthz", healthHandler(params.Logger, params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	timeout := RequestTimeout(params.Config)
	loginLimit := LoginRateLimit(params.Config)
	for _, ep := range Endpoints(params) {
		chain := []func(http.Handler) http.Handler{}
		if !ep.Policy.Streaming {
			chain = append(chain, timeout)
		}
		if ep.Credential {
			chain = append(chain, loginLimit)
		}
		chain = append(chain, params.Gate.Require(ep.Policy))
		r.With(chain...).Method(ep.Method, ep.Pattern, ep.Handler)
	}

	return r
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			httpx.Write(w, http.StatusServiceUnavailable, httpx.Envelope{Code: http.StatusServiceUnavailable, Message: "degraded", Data: status})
			return
		}
		httpx.OK(w, status)
	}
}

package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orthodoxmetrics/om-backend/api/controllers"
	"github.com/orthodoxmetrics/om-backend/api/middleware"
	"github.com/orthodoxmetrics/om-backend/internal/auth"
	"github.com/orthodoxmetrics/om-backend/internal/churches"
	"github.com/orthodoxmetrics/om-backend/internal/ocr"
	"github.com/orthodoxmetrics/om-backend/internal/records"
	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	"github.com/orthodoxmetrics/om-backend/internal/users"
	"github.com/orthodoxmetrics/om-backend/pkg/auth/session"
	"github.com/orthodoxmetrics/om-backend/pkg/config"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/orthodoxmetrics/om-backend/pkg/metrics"
	"github.com/orthodoxmetrics/om-backend/pkg/redis"
)

// TenantPools binds requests to church databases and reports the cache.
type TenantPools interface {
	middleware.TenantBinder
	Stats() tenancy.PoolStats
}

// Params carries everything the HTTP surface depends on.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Tenants  TenantPools

	Readiness []controllers.ReadinessCheck
	Metrics   *metrics.HTTPMetrics
	Gatherer  prometheus.Gatherer

	AuthService    auth.Service
	ChurchService  churches.Service
	UserService    users.Service
	RecordsService records.Service
	OCRService     ocr.Service
}

// NewRouter declares every API route on a tenancy.Registry and mounts the
// registry on a chi router.
func NewRouter(p Params) (http.Handler, error) {
	if p.Config == nil || p.Logger == nil {
		return nil, fmt.Errorf("config and logger required")
	}
	if p.Redis == nil || p.Tenants == nil {
		return nil, fmt.Errorf("redis and tenant pools required")
	}
	cfg, logg := p.Config, p.Logger

	registry, err := tenancy.NewRegistry(
		middleware.Auth(cfg.JWT, cfg.Session.CookieName, p.Sessions, logg),
		middleware.TenantDB(p.Tenants, cfg.FeatureFlags.AllowAdminChurchOverride, logg),
	)
	if err != nil {
		return nil, err
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	idempotent := middleware.Idempotency(p.Redis, cfg.Idempotency.TTL, logg)
	requireRole := func(min enums.Role) tenancy.Middleware {
		return middleware.RequireRole(min, logg)
	}

	routes := []tenancy.Route{
		{Name: "auth.login", Method: http.MethodPost, Pattern: "/api/auth/login", Public: true,
			Middleware: []tenancy.Middleware{middleware.AuthRateLimit(loginPolicy, p.Redis, logg)},
			Handler:    controllers.AuthLogin(p.AuthService, cfg.Session, cfg.JWT, logg)},
		{Name: "auth.refresh", Method: http.MethodPost, Pattern: "/api/auth/refresh", Public: true,
			Handler: controllers.AuthRefresh(p.AuthService, cfg.Session, cfg.JWT, logg)},
		{Name: "auth.logout", Method: http.MethodPost, Pattern: "/api/auth/logout",
			Handler: controllers.AuthLogout(p.AuthService, cfg.Session, logg)},
		{Name: "auth.me", Method: http.MethodGet, Pattern: "/api/auth/me",
			Handler: controllers.AuthMe(p.AuthService, logg)},

		{Name: "churches.list", Method: http.MethodGet, Pattern: "/api/churches",
			Handler: controllers.ChurchesList(p.ChurchService, logg)},
		{Name: "churches.get", Method: http.MethodGet, Pattern: "/api/churches/{id}",
			Handler: controllers.ChurchGet(p.ChurchService, logg)},
		{Name: "churches.update", Method: http.MethodPut, Pattern: "/api/churches/{id}",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleChurchAdmin)},
			Handler:    controllers.ChurchUpdate(p.ChurchService, logg)},
		{Name: "churches.users", Method: http.MethodGet, Pattern: "/api/churches/{id}/users",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleChurchAdmin)},
			Handler:    controllers.ChurchUsersList(p.UserService, logg)},

		{Name: "admin.churches.create", Method: http.MethodPost, Pattern: "/api/admin/churches",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleSuperAdmin), idempotent},
			Handler:    controllers.ChurchCreate(p.ChurchService, logg)},
		{Name: "admin.churches.deactivate", Method: http.MethodDelete, Pattern: "/api/admin/churches/{id}",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleSuperAdmin)},
			Handler:    controllers.ChurchDeactivate(p.ChurchService, logg)},
		{Name: "admin.churches.database", Method: http.MethodGet, Pattern: "/api/admin/churches/{id}/database",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleAdmin)},
			Handler:    controllers.ChurchDatabaseHealth(p.ChurchService, logg)},
		{Name: "admin.users.create", Method: http.MethodPost, Pattern: "/api/admin/users",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleAdmin), idempotent},
			Handler:    controllers.AdminUserCreate(p.UserService, logg)},
		{Name: "admin.users.update", Method: http.MethodPut, Pattern: "/api/admin/users/{id}",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleAdmin)},
			Handler:    controllers.AdminUserUpdate(p.UserService, logg)},
		{Name: "admin.users.toggle_status", Method: http.MethodPut, Pattern: "/api/admin/users/{id}/toggle-status",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleAdmin)},
			Handler:    controllers.AdminUserToggleStatus(p.UserService, logg)},
		{Name: "admin.users.reset_password", Method: http.MethodPost, Pattern: "/api/admin/users/{id}/reset-password",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleAdmin)},
			Handler:    controllers.AdminUserResetPassword(p.UserService, logg)},
		{Name: "admin.routes", Method: http.MethodGet, Pattern: "/api/admin/routes",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleAdmin)},
			Handler:    controllers.AdminRoutes(registry)},
		{Name: "admin.tenant_pools", Method: http.MethodGet, Pattern: "/api/admin/tenant-pools",
			Middleware: []tenancy.Middleware{requireRole(enums.RoleAdmin)},
			Handler:    controllers.AdminTenantPools(p.Tenants)},
	}

	for _, kind := range records.Paths() {
		routes = append(routes, recordRoutes(p, kind, idempotent, requireRole)...)
	}
	routes = append(routes, ocrRoutes(p, idempotent, requireRole)...)

	if err := registry.Add(routes...); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(p.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness...))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	registry.Mount(r)
	return r, nil
}

func recordRoutes(p Params, kind string, idempotent tenancy.Middleware, requireRole func(enums.Role) tenancy.Middleware) []tenancy.Route {
	base := "/api/records/" + kind
	svc, logg := p.RecordsService, p.Logger
	name := func(op string) string { return "records." + kind + "." + op }

	return []tenancy.Route{
		{Name: name("list"), Method: http.MethodGet, Pattern: base, Scope: tenancy.ScopeTenant,
			Handler: controllers.RecordsList(svc, kind, logg)},
		{Name: name("create"), Method: http.MethodPost, Pattern: base, Scope: tenancy.ScopeTenant,
			Middleware: []tenancy.Middleware{requireRole(enums.RoleEditor), idempotent},
			Handler:    controllers.RecordsCreate(svc, kind, logg)},
		{Name: name("batch"), Method: http.MethodPost, Pattern: base + "/batch", Scope: tenancy.ScopeTenant,
			Middleware: []tenancy.Middleware{requireRole(enums.RoleEditor), idempotent},
			Handler:    controllers.RecordsBatch(svc, kind, logg)},
		{Name: name("dropdown"), Method: http.MethodGet, Pattern: base + "/dropdown-options/{column}", Scope: tenancy.ScopeTenant,
			Handler: controllers.RecordsDropdownOptions(svc, kind, logg)},
		{Name: name("get"), Method: http.MethodGet, Pattern: base + "/{id}", Scope: tenancy.ScopeTenant,
			Handler: controllers.RecordsGet(svc, kind, logg)},
		{Name: name("update"), Method: http.MethodPut, Pattern: base + "/{id}", Scope: tenancy.ScopeTenant,
			Middleware: []tenancy.Middleware{requireRole(enums.RoleEditor)},
			Handler:    controllers.RecordsUpdate(svc, kind, logg)},
		{Name: name("delete"), Method: http.MethodDelete, Pattern: base + "/{id}", Scope: tenancy.ScopeTenant,
			Middleware: []tenancy.Middleware{requireRole(enums.RolePriest)},
			Handler:    controllers.RecordsDelete(svc, kind, logg)},
	}
}

func ocrRoutes(p Params, idempotent tenancy.Middleware, requireRole func(enums.Role) tenancy.Middleware) []tenancy.Route {
	const base = "/api/church/{churchId}/ocr/jobs"
	svc, logg := p.OCRService, p.Logger

	return []tenancy.Route{
		{Name: "ocr.jobs.list", Method: http.MethodGet, Pattern: base, Scope: tenancy.ScopeTenant,
			Handler: controllers.OCRJobsList(svc, logg)},
		{Name: "ocr.jobs.create", Method: http.MethodPost, Pattern: base, Scope: tenancy.ScopeTenant,
			Middleware: []tenancy.Middleware{requireRole(enums.RoleEditor), idempotent},
			Handler:    controllers.OCRJobCreate(svc, logg)},
		{Name: "ocr.jobs.get", Method: http.MethodGet, Pattern: base + "/{jobId}", Scope: tenancy.ScopeTenant,
			Handler: controllers.OCRJobGet(svc, logg)},
		{Name: "ocr.jobs.update", Method: http.MethodPatch, Pattern: base + "/{jobId}", Scope: tenancy.ScopeTenant,
			Middleware: []tenancy.Middleware{requireRole(enums.RoleEditor)},
			Handler:    controllers.OCRJobUpdate(svc, logg)},
	}
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/max950509/web-admin-fullstack-template/pkg/metricsx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"

	_ "github.com/max950509/web-admin-fullstack-template/api/admin" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metricsx.Metrics

	store store.Store
	cache cache.Cache

	Tokens        *service.TokenService
	Resolver      *service.PermissionResolver
	AuthService   *service.AuthService
	Captchas      *service.CaptchaService
	Users         *service.UserService
	Roles         *service.RoleService
	Permissions   *service.PermissionService
	Departments   *service.DepartmentService
	Positions     *service.PositionService
	OperationLogs *service.OperationLogService
	Exports       *service.ExportService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	c cache.Cache,
	metrics *metricsx.Metrics,
	logger *slog.Logger,
	allowedOrigins []string,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cache:        c,
		metrics:      metrics,
		logger:       logger,
	}

	// Set default middleware chain. Metrics sit directly on the mux in
	// ServeHTTP since they label by route pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(allowedOrigins),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerRoles()
	r.registerPermissions()
	r.registerDepartments()
	r.registerPositions()
	r.registerOperationLogs()
	r.registerExportTasks()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Web Admin API
//	@version		0.1.0
//	@description	Role-based admin panel backend: accounts, roles, permissions, organization,
//	@description	operation logs and background exports.
//	@description
//	@description				Sessions use opaque bearer tokens. Access tokens renew on use up to a hard session ceiling.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}" or the bare token.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.Mux
	if r.metrics != nil {
		h = r.metrics.Instrument(h)
	}
	httpx.Chain(h, r.middlewares...).ServeHTTP(w, req)
}

// Scope sets accepted by token-protected endpoints.
var (
	accessOnly     = []domain.Scope{domain.ScopeAccess}
	accessOrTwoFac = []domain.Scope{domain.ScopeAccess, domain.ScopeTwoFactor}
	twoFactorOnly  = []domain.Scope{domain.ScopeTwoFactor}
)

// secured builds the chain every token-protected endpoint shares: audit,
// token validation with scope check, per-user rate limit and, when req is
// not zero, the permission check.
func (r *Router) secured(h http.Handler, scopes []domain.Scope, limit httpx.RateLimitConfig, req domain.Requirement) http.Handler {
	mws := []httpx.Middleware{
		r.audit(req),
		r.authenticate(scopes...),
		httpx.RateLimitByUser(limit),
	}
	if req != (domain.Requirement{}) {
		mws = append(mws, httpx.RequirePermission(r.permissionCheck, req.Action, req.Resource))
	}
	return httpx.Chain(h, mws...)
}

// can is shorthand for an access-token endpoint guarded by (action, resource).
func (r *Router) can(h http.HandlerFunc, action, resource string) http.Handler {
	limit := httpx.LenientLimit
	if action != "read" {
		limit = httpx.ModerateLimit
	}
	return r.secured(h, accessOnly, limit, domain.Requirement{Action: action, Resource: resource})
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, Captchas: r.Captchas}

	// GET /captcha - lenient rate limit by IP, the login form fetches one per attempt
	r.Mux.Handle("GET /api/auth/captcha",
		httpx.Chain(http.HandlerFunc(h.HandleCaptcha),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /login - strict rate limit by IP + username to slow password guessing
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.audit(domain.Requirement{}),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	// POST /login/2fa and /otp/enable - strict, a six digit code is easy to brute force
	r.Mux.Handle("POST /api/auth/login/2fa",
		httpx.Chain(r.secured(http.HandlerFunc(h.HandleLogin2FA), twoFactorOnly, httpx.StrictLimit, domain.Requirement{}),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/otp/enable",
		httpx.Chain(r.secured(http.HandlerFunc(h.HandleEnableOTP), accessOrTwoFac, httpx.StrictLimit, domain.Requirement{}),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/otp/generate",
		r.secured(http.HandlerFunc(h.HandleGenerateOTP), accessOrTwoFac, httpx.ModerateLimit, domain.Requirement{}))

	r.Mux.Handle("GET /api/auth/profile",
		r.secured(http.HandlerFunc(h.HandleProfile), accessOnly, httpx.LenientLimit, domain.Requirement{}))
	r.Mux.Handle("POST /api/auth/logout",
		r.secured(http.HandlerFunc(h.HandleLogout), accessOrTwoFac, httpx.ModerateLimit, domain.Requirement{}))
	r.Mux.Handle("POST /api/auth/logout/all",
		r.secured(http.HandlerFunc(h.HandleLogoutAll), accessOnly, httpx.ModerateLimit, domain.Requirement{}))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.Users}

	r.Mux.Handle("POST /api/users", r.can(h.HandleCreate, "create", "account"))
	r.Mux.Handle("GET /api/users", r.can(h.HandleList, "read", "account"))
	r.Mux.Handle("GET /api/users/template", r.can(h.HandleTemplate, "read", "account"))
	r.Mux.Handle("POST /api/users/import", r.can(h.HandleImport, "create", "account"))
	r.Mux.Handle("POST /api/users/batch-delete", r.can(h.HandleBatchDelete, "delete", "account"))
	r.Mux.Handle("GET /api/users/{id}", r.can(h.HandleGet, "read", "account"))
	r.Mux.Handle("PATCH /api/users/{id}", r.can(h.HandleUpdate, "update", "account"))
	r.Mux.Handle("DELETE /api/users/{id}", r.can(h.HandleDelete, "delete", "account"))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{Roles: r.Roles}

	r.Mux.Handle("POST /api/roles", r.can(h.HandleCreate, "create", "role"))
	r.Mux.Handle("GET /api/roles", r.can(h.HandleList, "read", "role"))
	r.Mux.Handle("GET /api/roles/{id}", r.can(h.HandleGet, "read", "role"))
	r.Mux.Handle("PATCH /api/roles/{id}", r.can(h.HandleUpdate, "update", "role"))
	r.Mux.Handle("DELETE /api/roles/{id}", r.can(h.HandleDelete, "delete", "role"))
}

func (r *Router) registerPermissions() {
	h := &PermissionsHandler{Permissions: r.Permissions}

	r.Mux.Handle("POST /api/permissions", r.can(h.HandleCreate, "create", "permission"))
	r.Mux.Handle("GET /api/permissions", r.can(h.HandleList, "read", "permission"))
	r.Mux.Handle("GET /api/permissions/{id}", r.can(h.HandleGet, "read", "permission"))
	r.Mux.Handle("PATCH /api/permissions/{id}", r.can(h.HandleUpdate, "update", "permission"))
	r.Mux.Handle("DELETE /api/permissions/{id}", r.can(h.HandleDelete, "delete", "permission"))
}

func (r *Router) registerDepartments() {
	h := &DepartmentsHandler{Departments: r.Departments}

	r.Mux.Handle("POST /api/departments", r.can(h.HandleCreate, "create", "department"))
	r.Mux.Handle("GET /api/departments", r.can(h.HandleTree, "read", "department"))
	r.Mux.Handle("GET /api/departments/{id}", r.can(h.HandleGet, "read", "department"))
	r.Mux.Handle("PATCH /api/departments/{id}", r.can(h.HandleUpdate, "update", "department"))
	r.Mux.Handle("DELETE /api/departments/{id}", r.can(h.HandleDelete, "delete", "department"))

	// Options feed select boxes on forms any signed-in user may open.
	r.Mux.Handle("GET /api/departments/options",
		r.secured(http.HandlerFunc(h.HandleOptions), accessOnly, httpx.LenientLimit, domain.Requirement{}))
}

func (r *Router) registerPositions() {
	h := &PositionsHandler{Positions: r.Positions}

	r.Mux.Handle("POST /api/positions", r.can(h.HandleCreate, "create", "position"))
	r.Mux.Handle("GET /api/positions", r.can(h.HandleList, "read", "position"))
	r.Mux.Handle("GET /api/positions/{id}", r.can(h.HandleGet, "read", "position"))
	r.Mux.Handle("PATCH /api/positions/{id}", r.can(h.HandleUpdate, "update", "position"))
	r.Mux.Handle("DELETE /api/positions/{id}", r.can(h.HandleDelete, "delete", "position"))

	r.Mux.Handle("GET /api/positions/options",
		r.secured(http.HandlerFunc(h.HandleOptions), accessOnly, httpx.LenientLimit, domain.Requirement{}))
}

func (r *Router) registerOperationLogs() {
	h := &OperationLogsHandler{OperationLogs: r.OperationLogs}

	r.Mux.Handle("GET /api/operation-logs", r.can(h.HandleList, "read", "operation-log"))
	r.Mux.Handle("GET /api/operation-logs/me",
		r.secured(http.HandlerFunc(h.HandleListMine), accessOnly, httpx.LenientLimit, domain.Requirement{}))
}

func (r *Router) registerExportTasks() {
	h := &ExportTasksHandler{Exports: r.Exports}

	r.Mux.Handle("POST /api/export-tasks", r.can(h.HandleCreate, "create", "export-task"))
	r.Mux.Handle("GET /api/export-tasks", r.can(h.HandleList, "read", "export-task"))
	r.Mux.Handle("GET /api/export-tasks/{id}/download", r.can(h.HandleDownload, "read", "export-task"))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	httpapi "github.com/max950509/web-admin-fullstack-template/internal/admin/http"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/queue"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store/drivers/sqlite"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/max950509/web-admin-fullstack-template/pkg/metricsx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the admin service with all its dependencies.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metricsx.Metrics

	// Core dependencies
	db    *sqlite.Store
	cache cache.Cache
	queue queue.Queue

	// Services
	tokenService        *service.TokenService
	resolver            *service.PermissionResolver
	captchaService      *service.CaptchaService
	authService         *service.AuthService
	userService         *service.UserService
	roleService         *service.RoleService
	permissionService   *service.PermissionService
	departmentService   *service.DepartmentService
	positionService     *service.PositionService
	operationLogService *service.OperationLogService
	exportService       *service.ExportService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with the database migrated, the cache and
// queue connected and every service wired.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "admin-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metricsx.New(),
	}

	if err := httpx.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("failed to configure trusted proxies: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if cfg.SeedOnStart {
		if err := app.seed(context.Background()); err != nil {
			_ = app.closeBackends()
			return nil, err
		}
	}

	app.initHTTP()
	return app, nil
}

// Handler exposes the routed handler, for serving the application in tests.
func (app *Application) Handler() http.Handler { return app.router }

// Start launches the background workers: export processing and scheduled
// housekeeping.
func (app *Application) Start(ctx context.Context) error {
	if err := app.exportService.Start(ctx); err != nil {
		return err
	}
	if err := app.housekeepingService.Start(); err != nil {
		app.exportService.Stop()
		return err
	}
	return nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if err := app.Start(context.Background()); err != nil {
		return err
	}

	app.logger.Info("admin service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains HTTP requests first, then the workers, then closes the
// cache, queue and database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down admin service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.exportService.Stop()

	if err := app.closeBackends(); err != nil {
		return err
	}

	app.logger.Info("admin service stopped")
	return nil
}

func (app *Application) closeBackends() error {
	if err := app.queue.Close(); err != nil {
		app.logger.Error("error closing queue", "error", err)
	}
	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase opens the database and applies migrations.
func (app *Application) initDatabase() error {
	db, err := OpenStore(app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// OpenStore opens the configured sqlite database without migrating it.
func OpenStore(cfg Config) (*sqlite.Store, error) {
	db, err := sqlite.NewStore(sqlite.FileDSN(cfg.DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// initCache connects to redis, or falls back to in-process structures when
// no REDIS_URL is configured.
func (app *Application) initCache() error {
	if app.cfg.RedisURL == "" {
		app.logger.Warn("REDIS_URL not set: sessions and export queue are kept in process; run a single replica only")
		mem, err := cache.NewMemory(cache.DefaultMemorySize)
		if err != nil {
			return fmt.Errorf("failed to create memory cache: %w", err)
		}
		app.cache = mem
		app.queue = queue.NewMemory(256)
		return nil
	}

	rc, err := cache.NewRedis(app.cfg.RedisURL, app.cfg.CacheOpTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		// Requests fail closed until redis is back; readiness reports it.
		app.logger.Warn("redis not reachable at startup", "error", err)
	}

	app.cache = rc
	app.queue = queue.NewRedis(rc.Client(), queue.DefaultRedisKey)
	app.logger.Info("redis cache connected")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Cache:              app.cache,
		Store:              app.db,
		Metrics:            app.metrics,
		AccessTTL:          app.cfg.AccessTokenTTL,
		TwoFactorTTL:       app.cfg.TwoFactorTokenTTL,
		MaxSessionLifetime: app.cfg.MaxSessionLifetime,
		RenewInterval:      app.cfg.TokenRenewInterval,
	}
	app.resolver = &service.PermissionResolver{Store: app.db}
	app.captchaService = &service.CaptchaService{Cache: app.cache, TTL: app.cfg.CaptchaTTL}
	app.authService = &service.AuthService{
		Store:    app.db,
		Tokens:   app.tokenService,
		Captchas: app.captchaService,
		TOTP:     &service.TOTPGate{Store: app.db, Issuer: app.cfg.OTPIssuer},
		Resolver: app.resolver,
		Metrics:  app.metrics,
	}

	app.userService = &service.UserService{Store: app.db, Tokens: app.tokenService}
	app.roleService = &service.RoleService{Store: app.db}
	app.permissionService = &service.PermissionService{Store: app.db}
	app.departmentService = &service.DepartmentService{Store: app.db}
	app.positionService = &service.PositionService{Store: app.db}
	app.operationLogService = &service.OperationLogService{Store: app.db}

	app.exportService = &service.ExportService{
		Store: app.db,
		Queue: app.queue,
		Exporters: map[string]service.Exporter{
			domain.ExportTypeAccount: &service.AccountExporter{Store: app.db},
		},
		Dir:     app.cfg.ExportDir,
		Workers: app.cfg.ExportWorkers,
		Logger:  app.logger,
		Metrics: app.metrics,
	}

	app.housekeepingService = &service.HousekeepingService{
		OperationLogs:         app.operationLogService,
		Exports:               app.exportService,
		Logger:                app.logger,
		Schedule:              app.cfg.HousekeepingSchedule,
		OperationLogRetention: app.cfg.OperationLogRetention,
		ExportRetention:       app.cfg.ExportRetention,
	}
}

// seed loads the initial data into an empty database.
func (app *Application) seed(ctx context.Context) error {
	seeder := &service.SeedService{Store: app.db, Password: app.cfg.SeedAdminPassword}
	err := seeder.Seed(slogx.WithContext(ctx, app.logger))
	switch {
	case errors.Is(err, service.ErrAlreadySeeded):
		app.logger.Info("seed skipped, database already has users")
		return nil
	case err != nil:
		return fmt.Errorf("failed to seed database: %w", err)
	}
	app.logger.Info("database seeded")
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.cache,
		app.metrics,
		app.logger,
		app.cfg.AllowedOrigins,
	)

	router.Tokens = app.tokenService
	router.Resolver = app.resolver
	router.AuthService = app.authService
	router.Captchas = app.captchaService
	router.Users = app.userService
	router.Roles = app.roleService
	router.Permissions = app.permissionService
	router.Departments = app.departmentService
	router.Positions = app.positionService
	router.OperationLogs = app.operationLogService
	router.Exports = app.exportService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

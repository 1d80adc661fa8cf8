package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"PORT", "REDIS_URL", "ACCESS_TOKEN_TTL", "SEED_ON_START", "CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	require.Equal(t, 8080, cfg.Port)
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, 12*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.MaxSessionLifetime)
	require.Equal(t, "@daily", cfg.HousekeepingSchedule)
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	require.False(t, cfg.SeedOnStart)
	require.Equal(t, "password123", cfg.SeedAdminPassword)
	require.Empty(t, cfg.TrustedProxies)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL", "90")
	t.Setenv("TOKEN_RENEW_INTERVAL", "30s")
	t.Setenv("EXPORT_WORKERS", "not-a-number")
	t.Setenv("SEED_ON_START", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg := LoadConfig()
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 90*time.Minute, cfg.AccessTokenTTL, "bare integers are minutes")
	require.Equal(t, 30*time.Second, cfg.TokenRenewInterval)
	require.Equal(t, 1, cfg.ExportWorkers)
	require.True(t, cfg.SeedOnStart)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestNewRejectsInvalidTrustedProxies(t *testing.T) {
	_, err := New(Config{
		LogLevel:       "error",
		DatabaseFile:   filepath.Join(t.TempDir(), "admin.db"),
		TrustedProxies: []string{"not-a-cidr"},
	})
	require.ErrorContains(t, err, "trusted proxies")
}

func TestApplicationServesWithoutRedis(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		LogLevel:            "error",
		LogFormat:           "text",
		ShutdownGracePeriod: time.Second,
		DatabaseFile:        filepath.Join(dir, "admin.db"),
		ExportDir:           filepath.Join(dir, "exports"),
		ExportWorkers:       1,
		SeedOnStart:         true,
		SeedAdminPassword:   "password123",
	}

	app, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, app.Shutdown()) })

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")

	// Seeding a second time is a no-op.
	require.NoError(t, app.seed(context.Background()))
}

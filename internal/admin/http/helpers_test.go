package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/queue"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store/drivers/sqlite"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/max950509/web-admin-fullstack-template/pkg/metricsx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Every test logs in from the same address.
	httpx.StrictLimit = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	os.Exit(m.Run())
}

// apiEnv serves the full route table over a seeded in-memory database and
// a miniredis session cache.
type apiEnv struct {
	store  *sqlite.Store
	mr     *miniredis.Miniredis
	router *Router
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	c := cache.NewRedisFromClient(client, time.Second)
	t.Cleanup(func() { _ = c.Close() })

	seed := &service.SeedService{Store: st, Password: service.DefaultSeedPassword}
	require.NoError(t, seed.Seed(ctx))

	r := NewRouter("test", st, c, metricsx.New(), slog.New(slog.DiscardHandler), nil)
	r.Tokens = &service.TokenService{Cache: c, Store: st}
	r.Resolver = &service.PermissionResolver{Store: st}
	r.Captchas = &service.CaptchaService{Cache: c}
	r.AuthService = &service.AuthService{
		Store:    st,
		Tokens:   r.Tokens,
		Captchas: r.Captchas,
		TOTP:     &service.TOTPGate{Store: st, Issuer: "test"},
		Resolver: r.Resolver,
	}
	r.Users = &service.UserService{Store: st, Tokens: r.Tokens}
	r.Roles = &service.RoleService{Store: st}
	r.Permissions = &service.PermissionService{Store: st}
	r.Departments = &service.DepartmentService{Store: st}
	r.Positions = &service.PositionService{Store: st}
	r.OperationLogs = &service.OperationLogService{Store: st}
	r.Exports = &service.ExportService{
		Store:     st,
		Queue:     queue.NewMemory(16),
		Exporters: map[string]service.Exporter{domain.ExportTypeAccount: &service.AccountExporter{Store: st}},
		Dir:       t.TempDir(),
		Logger:    slog.New(slog.DiscardHandler),
	}
	r.ApplyRoutes()

	return &apiEnv{store: st, mr: mr, router: r}
}

// do sends a request through the router. body is JSON encoded unless nil.
func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// captcha issues a captcha over HTTP and reads its answer from redis.
func (e *apiEnv) captcha(t *testing.T) (string, string) {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/auth/captcha", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	c := decode[adminsdk.CaptchaResponse](t, rec)
	answer, err := e.mr.Get("captcha:" + c.ID)
	require.NoError(t, err)
	return c.ID, answer
}

// login performs a password login with a fresh captcha.
func (e *apiEnv) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	id, answer := e.captcha(t)
	return e.do(t, http.MethodPost, "/api/auth/login", "", adminsdk.LoginRequest{
		Username: username, Password: password, CaptchaID: id, Captcha: answer,
	})
}

// token logs in and returns the token, failing the test on any error.
func (e *apiEnv) token(t *testing.T, username, password string) adminsdk.LoginResponse {
	t.Helper()
	rec := e.login(t, username, password)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[adminsdk.LoginResponse](t, rec)
}

func (e *apiEnv) adminToken(t *testing.T) string {
	t.Helper()
	return e.token(t, "admin", service.DefaultSeedPassword).AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// requireError checks the status and the error code of a failed response.
func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, code, decode[adminsdk.ErrorResponse](t, rec).Error)
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(e *apiEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

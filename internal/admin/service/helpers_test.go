package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store/drivers/sqlite"
	"github.com/max950509/web-admin-fullstack-template/pkg/cryptox"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testEnv wires the auth services against an in-memory database and a
// miniredis whose clock moves together with the services' clock.
type testEnv struct {
	store *sqlite.Store
	mr    *miniredis.Miniredis
	cache cache.Cache
	now   time.Time

	tokens   *TokenService
	resolver *PermissionResolver
	captchas *CaptchaService
	totp     *TOTPGate
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	c := cache.NewRedisFromClient(client, time.Second)
	t.Cleanup(func() { _ = c.Close() })

	env := &testEnv{
		store: st,
		mr:    mr,
		cache: c,
		now:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	mr.SetTime(env.now)

	env.tokens = &TokenService{Cache: c, Store: st, Now: clock}
	env.resolver = &PermissionResolver{Store: st}
	env.captchas = &CaptchaService{Cache: c}
	env.totp = &TOTPGate{Store: st, Issuer: "test", Now: clock}
	env.auth = &AuthService{
		Store:    st,
		Tokens:   env.tokens,
		Captchas: env.captchas,
		TOTP:     env.totp,
		Resolver: env.resolver,
	}
	return env
}

// advance moves both the service clock and redis expiry forward.
func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
	e.mr.SetTime(e.now)
	e.mr.FastForward(d)
}

// createUser inserts a user with the given password and role ids.
func (e *testEnv) createUser(t *testing.T, username, password string, roleIDs ...int64) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)
	id, err := e.store.Users().CreateUser(ctx, domain.User{Username: username, PasswordHash: hash})
	require.NoError(t, err)
	require.NoError(t, e.store.Users().SetUserRoles(ctx, id, roleIDs))

	u, err := e.store.Users().GetUserByID(ctx, id)
	require.NoError(t, err)
	return u
}

// createRole inserts a role holding newly created (action, resource) permissions.
func (e *testEnv) createRole(t *testing.T, name string, grants ...domain.Requirement) int64 {
	t.Helper()
	ctx := context.Background()

	var permIDs []int64
	for _, g := range grants {
		id, err := e.store.Permissions().CreatePermission(ctx, domain.Permission{
			Name: g.String(), Type: domain.PermissionAction, Action: g.Action, Resource: g.Resource,
		})
		require.NoError(t, err)
		permIDs = append(permIDs, id)
	}

	id, err := e.store.Roles().CreateRole(ctx, domain.Role{Name: name, IsSuperAdmin: domain.IsSuperAdminName(name)})
	require.NoError(t, err)
	require.NoError(t, e.store.Roles().SetRolePermissions(ctx, id, permIDs))
	return id
}

// issueCaptcha returns a fresh captcha id and its answer.
func (e *testEnv) issueCaptcha(t *testing.T) (string, string) {
	t.Helper()
	c, err := e.captchas.Issue(context.Background())
	require.NoError(t, err)
	answer, err := e.mr.Get(captchaKey(c.ID))
	require.NoError(t, err)
	return c.ID, answer
}

func ptr[T any](v T) *T { return &v }

package admin_test

import (
	"testing"
	"time"

	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	s := startServer(t)

	live, err := s.client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := s.client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Cache)
	require.Equal(t, "ok", ready.Checks.Database)
}

// Password login for an account without OTP yields a usable access token.
func TestPasswordLogin(t *testing.T) {
	s := startServer(t)

	_, err := s.login(t, "admin", "wrong-password")
	require.ErrorIs(t, err, adminsdk.ErrInvalidCredentials)

	_, err = s.client.Login(t.Context(), adminsdk.LoginRequest{Username: "admin", Password: adminPassword})
	require.ErrorIs(t, err, adminsdk.ErrCaptchaRequired)

	session := s.mustLogin(t, "admin", adminPassword)
	require.False(t, session.Temporary())

	profile, err := session.Profile(t.Context())
	require.NoError(t, err)
	require.Equal(t, "admin", profile.Username)
	require.Len(t, profile.Roles, 1)
	require.True(t, profile.Roles[0].IsSuperAdmin)
	require.NotEmpty(t, profile.Permissions)
}

// With OTP enabled, login stops at a two-factor token that only the 2FA
// exchange accepts.
func TestTwoFactorLogin(t *testing.T) {
	s := startServer(t)
	ctx := t.Context()

	session := s.mustLogin(t, "john.doe", adminPassword)
	setup, err := session.GenerateOTP(ctx)
	require.NoError(t, err)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	_, err = session.EnableOTP(ctx, code)
	require.NoError(t, err)

	temp := s.mustLogin(t, "john.doe", adminPassword)
	require.True(t, temp.Temporary())

	_, err = temp.Profile(ctx)
	assertUnauthorized(t, err, "two-factor token must not reach the profile")

	_, err = temp.LoginWith2FA(ctx, "000000")
	require.ErrorIs(t, err, adminsdk.ErrInvalidOTPCode)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	full, err := temp.LoginWith2FA(ctx, code)
	require.NoError(t, err)
	require.False(t, full.Temporary())

	profile, err := full.Profile(ctx)
	require.NoError(t, err)
	require.True(t, profile.IsOTPEnabled)

	_, err = temp.LoginWith2FA(ctx, code)
	assertUnauthorized(t, err, "two-factor token is single use")
}

// Logout ends one session; logout/all ends every session of the user.
func TestLogoutScopes(t *testing.T) {
	s := startServer(t)
	ctx := t.Context()

	first := s.mustLogin(t, "admin", adminPassword)
	second := s.mustLogin(t, "admin", adminPassword)

	require.NoError(t, first.Logout(ctx))
	_, err := first.Profile(ctx)
	assertUnauthorized(t, err, "logged out token")
	_, err = second.Profile(ctx)
	require.NoError(t, err)

	third := s.mustLogin(t, "admin", adminPassword)
	require.NoError(t, second.LogoutAll(ctx))
	for _, session := range []*adminsdk.Session{second, third} {
		_, err = session.Profile(ctx)
		assertUnauthorized(t, err, "token issued before logout/all")
	}

	fresh := s.mustLogin(t, "admin", adminPassword)
	_, err = fresh.Profile(ctx)
	require.NoError(t, err)
}

// Tokens are plain redis keys with a TTL.
func TestSessionsLiveInRedis(t *testing.T) {
	s := startServer(t)
	ctx := t.Context()

	session := s.mustLogin(t, "admin", adminPassword)
	ttl, err := s.redis.TTL(ctx, "auth:token:"+session.Token()).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 11*time.Hour)
	require.LessOrEqual(t, ttl, 12*time.Hour)

	require.NoError(t, s.redis.Del(ctx, "auth:token:"+session.Token()).Err())
	_, err = session.Profile(ctx)
	assertUnauthorized(t, err, "deleted token")
}

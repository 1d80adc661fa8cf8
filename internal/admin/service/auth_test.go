package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) login(t *testing.T, username, password string) (domain.LoginResult, error) {
	t.Helper()
	id, answer := e.issueCaptcha(t)
	return e.auth.Login(context.Background(), LoginInput{
		Username: username, Password: password, CaptchaID: id, Captcha: answer,
	})
}

func TestLoginCaptchaGuard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "alice", "secret-pw")

	_, err := env.auth.Login(ctx, LoginInput{Username: "alice", Password: "secret-pw"})
	require.ErrorIs(t, err, ErrCaptchaRequired)

	id, _ := env.issueCaptcha(t)
	_, err = env.auth.Login(ctx, LoginInput{Username: "alice", Password: "secret-pw", CaptchaID: id, Captcha: "!!!!"})
	require.ErrorIs(t, err, ErrInvalidCaptcha)

	// The captcha is consumed even when the password is wrong.
	id, answer := env.issueCaptcha(t)
	_, err = env.auth.Login(ctx, LoginInput{Username: "alice", Password: "nope", CaptchaID: id, Captcha: answer})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, LoginInput{Username: "alice", Password: "secret-pw", CaptchaID: id, Captcha: answer})
	require.ErrorIs(t, err, ErrInvalidCaptcha)
}

func TestLoginCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "secret-pw")

	_, err := env.login(t, "mallory", "secret-pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.login(t, "alice", "wrong-pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := env.login(t, "alice", "secret-pw")
	require.NoError(t, err)
	require.False(t, res.Temporary)

	p, err := env.tokens.Validate(context.Background(), res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, domain.ScopeAccess, p.Scope)
}

// enrollOTP runs the enrollment sub-flow and returns the secret.
func enrollOTP(t *testing.T, env *testEnv, u domain.User) string {
	t.Helper()
	ctx := context.Background()
	p := domain.Principal{User: u, Scope: domain.ScopeAccess}

	setup, err := env.auth.GenerateOTP(ctx, p)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.True(t, strings.HasPrefix(setup.OTPAuthURL, "otpauth://totp/"))
	require.True(t, strings.HasPrefix(setup.QRCodeDataURL, "data:image/png;base64,"))

	code, err := totp.GenerateCode(setup.Secret, env.now)
	require.NoError(t, err)
	token, err := env.auth.EnableOTP(ctx, p, code)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return setup.Secret
}

func TestTwoFactorLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "alice", "secret-pw")
	secret := enrollOTP(t, env, u)

	res, err := env.login(t, "alice", "secret-pw")
	require.NoError(t, err)
	require.True(t, res.Temporary)

	p, err := env.tokens.Validate(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, domain.ScopeTwoFactor, p.Scope)

	_, err = env.auth.LoginWith2FA(ctx, p, "000000")
	require.ErrorIs(t, err, ErrInvalidOTPCode)

	code, err := totp.GenerateCode(secret, env.now)
	require.NoError(t, err)
	access, err := env.auth.LoginWith2FA(ctx, p, code)
	require.NoError(t, err)

	full, err := env.tokens.Validate(ctx, access)
	require.NoError(t, err)
	require.Equal(t, domain.ScopeAccess, full.Scope)
	require.True(t, full.User.OTPEnabled)

	_, err = env.tokens.Validate(ctx, res.AccessToken)
	require.ErrorIs(t, err, ErrUnauthenticated, "two-factor token is spent")

	_, err = env.auth.LoginWith2FA(ctx, full, code)
	require.ErrorIs(t, err, ErrUnauthenticated, "access tokens cannot complete the OTP step")
}

func TestOTPEnrollment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "alice", "secret-pw")
	p := domain.Principal{User: u, Scope: domain.ScopeAccess}

	_, err := env.auth.EnableOTP(ctx, p, "123456")
	require.ErrorIs(t, err, ErrOTPNotConfigured)

	first, err := env.auth.GenerateOTP(ctx, p)
	require.NoError(t, err)
	second, err := env.auth.GenerateOTP(ctx, p)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	stale, err := totp.GenerateCode(first.Secret, env.now)
	require.NoError(t, err)
	_, err = env.auth.EnableOTP(ctx, p, stale)
	require.ErrorIs(t, err, ErrInvalidOTPCode, "generate overwrites the previous secret")

	u, err = env.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, u.OTPEnabled, "not armed until a code verifies")
	require.Equal(t, second.Secret, *u.OTPSecret)
}

func TestTOTPSkewWindow(t *testing.T) {
	env := newTestEnv(t)
	secret := "JBSWY3DPEHPK3PXP"
	u := domain.User{OTPSecret: &secret}

	for offset, want := range map[time.Duration]bool{
		0:                 true,
		-30 * time.Second: true,
		30 * time.Second:  true,
		-90 * time.Second: false,
		90 * time.Second:  false,
	} {
		code, err := totp.GenerateCode(secret, env.now.Add(offset))
		require.NoError(t, err)
		require.Equal(t, want, env.totp.Verify(u, code), "offset %s", offset)
	}

	require.False(t, env.totp.Verify(domain.User{}, "123456"))
}

func TestProfileAndLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	role := env.createRole(t, "viewer", domain.Requirement{Action: "read", Resource: "account"})
	u := env.createUser(t, "alice", "secret-pw", role)

	res, err := env.login(t, "alice", "secret-pw")
	require.NoError(t, err)
	p, err := env.tokens.Validate(ctx, res.AccessToken)
	require.NoError(t, err)

	profile, err := env.auth.Profile(ctx, p)
	require.NoError(t, err)
	require.Equal(t, u.ID, profile.User.ID)
	require.Len(t, profile.User.Roles, 1)
	require.Len(t, profile.Permissions, 1)

	other, err := env.login(t, "alice", "secret-pw")
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, p))
	_, err = env.tokens.Validate(ctx, res.AccessToken)
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = env.tokens.Validate(ctx, other.AccessToken)
	require.NoError(t, err, "logout only ends the presented session")

	require.NoError(t, env.auth.LogoutAll(ctx, p))
	_, err = env.tokens.Validate(ctx, other.AccessToken)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

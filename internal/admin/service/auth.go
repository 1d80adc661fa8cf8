package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/pkg/cryptox"
	"github.com/max950509/web-admin-fullstack-template/pkg/metricsx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// LoginInput is the password step of a login.
type LoginInput struct {
	Username  string
	Password  string
	CaptchaID string
	Captcha   string
}

// Profile is the authenticated user's own view: account, roles and the
// effective permission set.
type Profile struct {
	User        domain.User
	Permissions []domain.Permission
}

// AuthService drives login, the OTP step and session teardown.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Captchas *CaptchaService
	TOTP     *TOTPGate
	Resolver *PermissionResolver
	Metrics  *metricsx.Metrics
}

// Login checks the captcha, then the password. Users with OTP enabled get a
// two-factor token marked temporary instead of an access token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (domain.LoginResult, error) {
	res, err := s.login(ctx, in)
	s.Metrics.ObserveLogin(loginResult(res, err))
	return res, err
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (domain.LoginResult, error) {
	log := slogx.FromContext(ctx)

	if in.CaptchaID == "" || in.Captcha == "" {
		return domain.LoginResult{}, ErrCaptchaRequired
	}
	ok, err := s.Captchas.Verify(ctx, in.CaptchaID, in.Captcha)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to verify captcha: %w", err)
	}
	if !ok {
		return domain.LoginResult{}, ErrInvalidCaptcha
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, in.Username)
	if errors.Is(err, store.ErrNotFound) {
		cryptox.BurnPasswordCheck(in.Password)
		log.Info("login rejected", "username", in.Username, "reason", "unknown user")
		return domain.LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := cryptox.VerifyPassword(in.Password, user.PasswordHash); err != nil {
		log.Info("login rejected", "user_id", user.ID, "reason", "bad password")
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	if user.OTPEnabled {
		token, err := s.Tokens.IssueTwoFactor(ctx, user)
		if err != nil {
			return domain.LoginResult{}, err
		}
		return domain.LoginResult{AccessToken: token, Temporary: true}, nil
	}

	token, err := s.Tokens.IssueAccess(ctx, user)
	if err != nil {
		return domain.LoginResult{}, err
	}
	log.Info("login succeeded", "user_id", user.ID)
	return domain.LoginResult{AccessToken: token}, nil
}

// LoginWith2FA exchanges a two-factor token and a valid OTP for an access
// token. The two-factor token is consumed.
func (s *AuthService) LoginWith2FA(ctx context.Context, p domain.Principal, code string) (string, error) {
	if p.Scope != domain.ScopeTwoFactor {
		return "", ErrUnauthenticated
	}
	if !s.TOTP.Verify(p.User, code) {
		s.Metrics.ObserveLogin("bad_otp")
		return "", ErrInvalidOTPCode
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, p.User.Username)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	token, err := s.Tokens.IssueAccess(ctx, user)
	if err != nil {
		return "", err
	}
	if err := s.Tokens.Logout(ctx, p.Token); err != nil {
		slogx.FromContext(ctx).Warn("failed to consume two-factor token", "user_id", user.ID, "err", err)
	}

	s.Metrics.ObserveLogin("success")
	slogx.FromContext(ctx).Info("login succeeded", "user_id", user.ID, "second_factor", true)
	return token, nil
}

// GenerateOTP starts OTP enrollment for the caller.
func (s *AuthService) GenerateOTP(ctx context.Context, p domain.Principal) (domain.OTPSetup, error) {
	return s.TOTP.Generate(ctx, p.User.ID)
}

// EnableOTP confirms enrollment and returns a fresh access token.
func (s *AuthService) EnableOTP(ctx context.Context, p domain.Principal, code string) (string, error) {
	if err := s.TOTP.Enable(ctx, p.User.ID, code); err != nil {
		return "", err
	}

	user, err := s.Store.Users().GetUserByID(ctx, p.User.ID)
	if err != nil {
		return "", mapStoreErr(err, "user")
	}
	slogx.FromContext(ctx).Info("OTP enabled", "user_id", user.ID)
	return s.Tokens.IssueAccess(ctx, user)
}

// Profile returns the caller's account and effective permissions.
func (s *AuthService) Profile(ctx context.Context, p domain.Principal) (Profile, error) {
	user, err := s.Store.Users().GetUserByID(ctx, p.User.ID)
	if err != nil {
		return Profile{}, mapStoreErr(err, "user")
	}
	perms, err := s.Resolver.held(ctx, user)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: user, Permissions: perms}, nil
}

// Logout ends the presented session only.
func (s *AuthService) Logout(ctx context.Context, p domain.Principal) error {
	return s.Tokens.Logout(ctx, p.Token)
}

// LogoutAll ends every session of the caller.
func (s *AuthService) LogoutAll(ctx context.Context, p domain.Principal) error {
	if err := s.Tokens.LogoutAll(ctx, p.User.ID); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("all sessions revoked", "user_id", p.User.ID)
	return nil
}

func loginResult(res domain.LoginResult, err error) string {
	switch {
	case err == nil && res.Temporary:
		return "otp_required"
	case err == nil:
		return "success"
	case errors.Is(err, ErrCaptchaRequired), errors.Is(err, ErrInvalidCaptcha):
		return "bad_captcha"
	case errors.Is(err, ErrInvalidCredentials):
		return "bad_credentials"
	default:
		return "error"
	}
}

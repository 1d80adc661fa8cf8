package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/pkg/cryptox"
	"github.com/max950509/web-admin-fullstack-template/pkg/metricsx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

const (
	DefaultAccessTokenTTL     = 12 * time.Hour
	DefaultTwoFactorTokenTTL  = 5 * time.Minute
	DefaultMaxSessionLifetime = 7 * 24 * time.Hour
	DefaultRenewInterval      = 15 * time.Minute
)

// Each failure wraps ErrUnauthenticated; the reason only reaches logs and metrics.
var (
	errTokenMissing   = fmt.Errorf("%w: missing token", ErrUnauthenticated)
	errTokenInvalid   = fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	errTokenRevoked   = fmt.Errorf("%w: revoked", ErrUnauthenticated)
	errSessionExpired = fmt.Errorf("%w: session expired", ErrUnauthenticated)
	errUserGone       = fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
)

func tokenKey(token string) string { return "auth:token:" + token }
func userVersionKey(userID int64) string { return "auth:user:" + strconv.FormatInt(userID, 10) + ":ver" }

// TokenService issues and validates opaque bearer tokens. All session state
// lives in Cache; a per-user version counter revokes every token of a user at once.
type TokenService struct {
	Cache   cache.Cache
	Store   store.Store
	Metrics *metricsx.Metrics

	AccessTTL          time.Duration
	TwoFactorTTL       time.Duration
	MaxSessionLifetime time.Duration
	RenewInterval      time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return DefaultAccessTokenTTL
}

func (s *TokenService) twoFactorTTL() time.Duration {
	if s.TwoFactorTTL > 0 {
		return s.TwoFactorTTL
	}
	return DefaultTwoFactorTokenTTL
}

// maxSession never undercuts the access token TTL.
func (s *TokenService) maxSession() time.Duration {
	lifetime := s.MaxSessionLifetime
	if lifetime <= 0 {
		lifetime = DefaultMaxSessionLifetime
	}
	return max(s.accessTTL(), lifetime)
}

func (s *TokenService) renewInterval() time.Duration {
	if s.RenewInterval > 0 {
		return s.RenewInterval
	}
	return DefaultRenewInterval
}

// IssueAccess issues a full session token with the configured TTL.
func (s *TokenService) IssueAccess(ctx context.Context, user domain.User) (string, error) {
	return s.Issue(ctx, user, domain.ScopeAccess, s.accessTTL())
}

// IssueTwoFactor issues a token that is only good for completing the OTP step.
func (s *TokenService) IssueTwoFactor(ctx context.Context, user domain.User) (string, error) {
	return s.Issue(ctx, user, domain.ScopeTwoFactor, s.twoFactorTTL())
}

// Issue mints a token for user. Access tokens get an absolute session ceiling
// and their TTL is capped by it; two-factor tokens rely on their short TTL.
func (s *TokenService) Issue(ctx context.Context, user domain.User, scope domain.Scope, ttl time.Duration) (string, error) {
	if !scope.Valid() {
		return "", fmt.Errorf("unknown token scope %q", scope)
	}

	token, err := cryptox.NewSessionToken()
	if err != nil {
		return "", err
	}

	ver, err := s.versionOrInit(ctx, user.ID)
	if err != nil {
		return "", err
	}

	issuedAt := s.now()
	rec := domain.SessionToken{
		UserID:      user.ID,
		Username:    user.Username,
		Scope:       scope,
		Version:     ver,
		IssuedAt:    issuedAt.UnixMilli(),
		LastRenewAt: issuedAt.UnixMilli(),
	}
	if scope == domain.ScopeAccess {
		rec.SessionExpiresAt = issuedAt.Add(s.maxSession()).UnixMilli()
		ttl = min(ttl, s.maxSession())
	}

	if err := s.store(ctx, token, rec, ttl); err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Debug("token issued",
		"user_id", user.ID,
		"scope", scope,
		"fingerprint", cryptox.FingerprintToken(token),
	)
	return token, nil
}

// Validate resolves a presented token to its principal. Negative outcomes wrap
// ErrUnauthenticated; any other error is an infrastructure failure and must
// be treated as a denial.
func (s *TokenService) Validate(ctx context.Context, token string) (domain.Principal, error) {
	p, err := s.validate(ctx, token)
	s.Metrics.ObserveTokenValidation(validationResult(err))
	if err != nil && !errors.Is(err, ErrUnauthenticated) {
		slogx.FromContext(ctx).Error("token validation failed", "err", err)
	}
	return p, err
}

func (s *TokenService) validate(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, errTokenMissing
	}

	rec, err := s.load(ctx, token)
	if err != nil {
		return domain.Principal{}, err
	}

	// The version check precedes the user lookup so a revoked session never
	// reaches the store.
	ver, err := s.version(ctx, rec.UserID)
	if err != nil {
		return domain.Principal{}, err
	}
	if ver != rec.Version {
		return domain.Principal{}, errTokenRevoked
	}

	if rec.Scope == domain.ScopeAccess {
		if err := s.renew(ctx, token, rec); err != nil {
			return domain.Principal{}, err
		}
	}

	user, err := principalLookups[rec.Scope](ctx, s.Store.Users(), rec)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, errUserGone
	}
	if err != nil {
		return domain.Principal{}, fmt.Errorf("failed to load token user: %w", err)
	}

	return domain.Principal{User: user, Scope: rec.Scope, Token: token}, nil
}

// renew slides an access token's TTL forward at most once per renew interval
// and never past the session ceiling.
func (s *TokenService) renew(ctx context.Context, token string, rec domain.SessionToken) error {
	now := s.now()

	expiresAt := time.UnixMilli(rec.IssuedAt).Add(s.maxSession())
	if rec.SessionExpiresAt > 0 {
		expiresAt = time.UnixMilli(rec.SessionExpiresAt)
	}
	if !now.Before(expiresAt) {
		if err := s.Cache.Del(ctx, tokenKey(token)); err != nil {
			slogx.FromContext(ctx).Warn("failed to delete expired session", "err", err)
		}
		return errSessionExpired
	}

	lastRenew := time.UnixMilli(rec.IssuedAt)
	if rec.LastRenewAt > 0 {
		lastRenew = time.UnixMilli(rec.LastRenewAt)
	}
	if now.Sub(lastRenew) < s.renewInterval() {
		return nil
	}

	rec.LastRenewAt = now.UnixMilli()
	rec.SessionExpiresAt = expiresAt.UnixMilli()
	return s.store(ctx, token, rec, min(s.accessTTL(), expiresAt.Sub(now)))
}

// Logout deletes the presented token. Deleting an absent token succeeds.
func (s *TokenService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return errTokenMissing
	}
	return s.Cache.Del(ctx, tokenKey(token))
}

// LogoutAll bumps the user's session version, invalidating every token
// issued before the call. The version is initialised first so the first
// call moves it from 1 to 2.
func (s *TokenService) LogoutAll(ctx context.Context, userID int64) error {
	key := userVersionKey(userID)
	if _, err := s.Cache.SetNX(ctx, key, "1", 0); err != nil {
		return err
	}
	if _, err := s.Cache.Incr(ctx, key); err != nil {
		return err
	}
	return nil
}

// principalLookups resolves the user behind a token. Access tokens follow the
// user id; two-factor tokens follow the username so a rename between the
// password and OTP steps still resolves.
var principalLookups = map[domain.Scope]func(context.Context, store.Users, domain.SessionToken) (domain.User, error){
	domain.ScopeAccess: func(ctx context.Context, users store.Users, rec domain.SessionToken) (domain.User, error) {
		return users.GetUserByID(ctx, rec.UserID)
	},
	domain.ScopeTwoFactor: func(ctx context.Context, users store.Users, rec domain.SessionToken) (domain.User, error) {
		return users.GetUserByUsername(ctx, rec.Username)
	},
}

func (s *TokenService) versionOrInit(ctx context.Context, userID int64) (int64, error) {
	ver, err := s.version(ctx, userID)
	if !errors.Is(err, errTokenRevoked) {
		return ver, err
	}

	created, err := s.Cache.SetNX(ctx, userVersionKey(userID), "1", 0)
	if err != nil {
		return 0, err
	}
	if created {
		return 1, nil
	}
	// Lost a race with a concurrent initialiser.
	return s.version(ctx, userID)
}

// version reads the user's session version. An absent or unparsable version
// is reported as errTokenRevoked.
func (s *TokenService) version(ctx context.Context, userID int64) (int64, error) {
	raw, err := s.Cache.Get(ctx, userVersionKey(userID))
	if errors.Is(err, cache.ErrMiss) {
		return 0, errTokenRevoked
	}
	if err != nil {
		return 0, err
	}
	ver, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ver < 1 {
		return 0, errTokenRevoked
	}
	return ver, nil
}

// load fetches and strictly decodes a token record. Malformed content is
// indistinguishable from a miss.
func (s *TokenService) load(ctx context.Context, token string) (domain.SessionToken, error) {
	raw, err := s.Cache.Get(ctx, tokenKey(token))
	if errors.Is(err, cache.ErrMiss) {
		return domain.SessionToken{}, errTokenInvalid
	}
	if err != nil {
		return domain.SessionToken{}, err
	}

	rec, ok := decodeSessionToken(raw)
	if !ok {
		slogx.FromContext(ctx).Warn("discarding malformed session record",
			"fingerprint", cryptox.FingerprintToken(token))
		return domain.SessionToken{}, errTokenInvalid
	}
	return rec, nil
}

func decodeSessionToken(raw string) (domain.SessionToken, bool) {
	var rec domain.SessionToken
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.SessionToken{}, false
	}
	if !rec.Scope.Valid() || rec.UserID <= 0 || rec.Version <= 0 || rec.Username == "" || rec.IssuedAt <= 0 {
		return domain.SessionToken{}, false
	}
	if rec.LastRenewAt < 0 || rec.SessionExpiresAt < 0 {
		return domain.SessionToken{}, false
	}
	return rec, true
}

func (s *TokenService) store(ctx context.Context, token string, rec domain.SessionToken, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	return s.Cache.Set(ctx, tokenKey(token), string(raw), ttl)
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errTokenMissing):
		return "missing"
	case errors.Is(err, errTokenInvalid):
		return "invalid"
	case errors.Is(err, errTokenRevoked):
		return "revoked"
	case errors.Is(err, errSessionExpired):
		return "expired"
	case errors.Is(err, errUserGone):
		return "user_not_found"
	default:
		return "error"
	}
}

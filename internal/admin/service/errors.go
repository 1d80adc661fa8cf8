package service

import (
	"errors"
	"fmt"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
)

var (
	// ErrUnauthenticated covers every token failure. Callers must not reveal
	// which check failed.
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrCaptchaRequired    = errors.New("captcha is required")
	ErrInvalidCaptcha     = errors.New("invalid captcha")
	ErrInvalidOTPCode     = errors.New("invalid OTP code")
	ErrOTPNotConfigured   = errors.New("OTP is not configured for this user")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInUse              = errors.New("still referenced")
)

// invalidf wraps ErrInvalidInput with a client-facing reason.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// mapStoreErr converts store sentinels into service errors and wraps anything
// else with context.
func mapStoreErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, store.ErrAlreadyExists):
		return fmt.Errorf("%w: %s", ErrConflict, what)
	case errors.Is(err, store.ErrInUse):
		return fmt.Errorf("%w: %s", ErrInUse, what)
	default:
		return fmt.Errorf("failed to access %s: %w", what, err)
	}
}

package http

import (
	"errors"
	"net/http"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/cache"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// tokenDenied is the only description a token failure ever gets, whatever
// the cause.
const tokenDenied = "the access token is missing, invalid, expired or revoked"

// writeError maps a service error onto the response. Invalid input, not found
// and conflict errors carry their own message; everything unexpected is
// logged and reported as a bare server error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		httpx.WriteBearerError(w, tokenDenied)
	case errors.Is(err, service.ErrInvalidCredentials):
		adminsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInvalidOTPCode):
		adminsdk.ErrInvalidOTPCode.WriteError(w)
	case errors.Is(err, service.ErrCaptchaRequired):
		adminsdk.ErrCaptchaRequired.WriteError(w)
	case errors.Is(err, service.ErrInvalidCaptcha):
		adminsdk.ErrInvalidCaptcha.WriteError(w)
	case errors.Is(err, service.ErrOTPNotConfigured):
		adminsdk.ErrOTPNotConfigured.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		adminsdk.ErrInsufficientPermission.WriteError(w)
	case errors.Is(err, service.ErrInvalidInput):
		adminsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
	case errors.Is(err, service.ErrInUse):
		adminsdk.ErrInUse.WithDescription(err.Error()).WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		adminsdk.ErrNotFound.WithDescription(err.Error()).WriteError(w)
	case errors.Is(err, service.ErrConflict):
		adminsdk.ErrConflict.WithDescription(err.Error()).WriteError(w)
	case errors.Is(err, cache.ErrUnavailable):
		log.Error("cache unavailable", "err", err)
		adminsdk.ErrServiceUnavailable.WriteError(w)
	default:
		log.Error("request failed", "err", err)
		adminsdk.ErrServerError.WriteError(w)
	}
}

// writeBadRequest reports a malformed request body or parameter.
func writeBadRequest(w http.ResponseWriter, desc string) {
	adminsdk.ErrInvalidRequest.WithDescription(desc).WriteError(w)
}

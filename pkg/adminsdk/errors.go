package adminsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest         = "invalid_request"
	ErrorCodeInvalidToken           = "invalid_token"
	ErrorCodeInvalidCredentials     = "invalid_credentials"
	ErrorCodeCaptchaRequired        = "captcha_required"
	ErrorCodeInvalidCaptcha         = "invalid_captcha"
	ErrorCodeInvalidOTPCode         = "invalid_otp_code"
	ErrorCodeOTPNotConfigured       = "otp_not_configured"
	ErrorCodeInsufficientPermission = "insufficient_permission"
	ErrorCodeNotFound               = "not_found"
	ErrorCodeConflict               = "conflict"
	ErrorCodeInUse                  = "in_use"
	ErrorCodeRateLimitExceeded      = "rate_limit_exceeded"
	ErrorCodeServerError            = "server_error"
	ErrorCodeServiceUnavailable     = "service_unavailable"
)

// APIError is the error body of every failed request. It is written by the
// server and returned by the client.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code, so errors.Is(err, ErrNotFound) holds for any not_found
// response regardless of its description.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WriteError writes e as the JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// WithDescription returns a copy of e carrying desc.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

// WithStatus returns a copy of e with a different HTTP status.
func (e *APIError) WithStatus(code int) *APIError {
	c := *e
	c.StatusCode = code
	return &c
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidToken is returned for every token failure. The description
	// never says whether the token was unknown, revoked or expired.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid, expired or revoked",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}

	ErrCaptchaRequired = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeCaptchaRequired,
		Description: "captcha is required",
	}

	ErrInvalidCaptcha = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidCaptcha,
		Description: "captcha is invalid or expired",
	}

	ErrInvalidOTPCode = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidOTPCode,
		Description: "invalid one-time code",
	}

	ErrOTPNotConfigured = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeOTPNotConfigured,
		Description: "two-factor authentication has not been set up",
	}

	ErrInsufficientPermission = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientPermission,
		Description: "missing permission",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "resource already exists",
	}

	ErrInUse = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInUse,
		Description: "resource is still referenced",
	}

	ErrRateLimitExceeded = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimitExceeded,
		Description: "too many requests",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrServiceUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeServiceUnavailable,
		Description: "a backing service is unavailable, try again later",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

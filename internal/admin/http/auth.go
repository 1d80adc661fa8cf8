package http

import (
	"errors"
	"net/http"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// AuthHandler serves the login flow and session endpoints under /api/auth.
type AuthHandler struct {
	AuthService *service.AuthService
	Captchas    *service.CaptchaService
}

// HandleCaptcha handles GET /api/auth/captcha
//
//	@Summary		Issue a login captcha
//	@Description	Returns a captcha id and an SVG image. The answer is single use and expires after a few minutes.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	adminsdk.CaptchaResponse	"Captcha id and image"
//	@Failure		429	{object}	adminsdk.ErrorResponse		"Rate limit exceeded"
//	@Failure		503	{object}	adminsdk.ErrorResponse		"Cache unavailable"
//	@Router			/api/auth/captcha [get].
func (h *AuthHandler) HandleCaptcha(w http.ResponseWriter, r *http.Request) {
	c, err := h.Captchas.Issue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminsdk.CaptchaResponse{ID: c.ID, SVG: c.SVG})
}

// HandleLogin handles POST /api/auth/login
//
//	@Summary		Log in with username and password
//	@Description	Checks the captcha first, then the password. Accounts with TOTP enabled receive a short-lived
//	@Description	two-factor token (isTemporary=true) that must be exchanged at /api/auth/login/2fa.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.LoginRequest	true	"Credentials and captcha answer"
//	@Success		200		{object}	adminsdk.LoginResponse	"Access token or two-factor token"
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Captcha missing or wrong"
//	@Failure		401		{object}	adminsdk.ErrorResponse	"Invalid username or password"
//	@Failure		429		{object}	adminsdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		CaptchaID: req.CaptchaID,
		Captcha:   req.Captcha,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			slogx.FromContext(r.Context()).Warn("login failed", "username", req.Username)
		}
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, adminsdk.LoginResponse{
		AccessToken: res.AccessToken,
		IsTemporary: res.Temporary,
	})
}

// HandleLogin2FA handles POST /api/auth/login/2fa
//
//	@Summary		Complete login with a TOTP code
//	@Description	Exchanges a two-factor token and a valid code for an access token. The two-factor token is consumed.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.OTPCodeRequest	true	"TOTP code"
//	@Success		200		{object}	adminsdk.TokenResponse	"Access token"
//	@Failure		401		{object}	adminsdk.ErrorResponse	"Invalid token or code"
//	@Failure		429		{object}	adminsdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/api/auth/login/2fa [post].
func (h *AuthHandler) HandleLogin2FA(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req adminsdk.OTPCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := h.AuthService.LoginWith2FA(r.Context(), p, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminsdk.TokenResponse{AccessToken: token})
}

// HandleGenerateOTP handles POST /api/auth/otp/generate
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a new secret for the caller, replacing any previous one, and returns it with an
//	@Description	otpauth URL and a QR code. TOTP stays disabled until /api/auth/otp/enable succeeds.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	adminsdk.OTPSetupResponse	"Secret, otpauth URL and QR code"
//	@Failure		401	{object}	adminsdk.ErrorResponse		"Invalid or missing token"
//	@Router			/api/auth/otp/generate [post].
func (h *AuthHandler) HandleGenerateOTP(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	setup, err := h.AuthService.GenerateOTP(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminsdk.OTPSetupResponse{
		Secret:        setup.Secret,
		OTPAuthURL:    setup.OTPAuthURL,
		QRCodeDataURL: setup.QRCodeDataURL,
	})
}

// HandleEnableOTP handles POST /api/auth/otp/enable
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Verifies a code against the generated secret, enables TOTP and returns a fresh access token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.OTPCodeRequest	true	"TOTP code"
//	@Success		200		{object}	adminsdk.TokenResponse	"Access token"
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Invalid code or no secret generated"
//	@Failure		401		{object}	adminsdk.ErrorResponse	"Invalid or missing token"
//	@Router			/api/auth/otp/enable [post].
func (h *AuthHandler) HandleEnableOTP(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req adminsdk.OTPCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := h.AuthService.EnableOTP(r.Context(), p, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOTPCode) {
			// Enrollment happens inside a session, so a wrong code is a 400 here.
			adminsdk.ErrInvalidOTPCode.WithStatus(http.StatusBadRequest).WriteError(w)
			return
		}
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminsdk.TokenResponse{AccessToken: token})
}

// HandleProfile handles GET /api/auth/profile
//
//	@Summary		Current user
//	@Description	Returns the caller's account, roles and effective permissions. Two-factor tokens are rejected.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	adminsdk.ProfileResponse	"Profile"
//	@Failure		401	{object}	adminsdk.ErrorResponse		"Invalid or missing access token"
//	@Router			/api/auth/profile [get].
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	profile, err := h.AuthService.Profile(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminsdk.ProfileResponse{
		UserResponse: toUserResponse(profile.User),
		Permissions:  mapSlice(profile.Permissions, toPermissionResponse),
	})
}

// HandleLogout handles POST /api/auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the presented token. Other sessions of the same user stay valid.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204	"Token revoked"
//	@Failure		401	{object}	adminsdk.ErrorResponse	"Invalid or missing token"
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := h.AuthService.Logout(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogoutAll handles POST /api/auth/logout/all
//
//	@Summary		Log out everywhere
//	@Description	Invalidates every token issued to the caller, on every device.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204	"All sessions revoked"
//	@Failure		401	{object}	adminsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/api/auth/logout/all [post].
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := h.AuthService.LogoutAll(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

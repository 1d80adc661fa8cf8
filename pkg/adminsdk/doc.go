/*
Package adminsdk is a Go client for the admin API and the home of its wire types.

# Client vs Session

  - Client: unauthenticated operations (health probes, captcha, password login)
  - Session: operations that carry an opaque bearer token

A typical login looks like this:

	client := adminsdk.NewClient("http://localhost:8080")

	captcha, err := client.GetCaptcha(ctx)
	// show captcha.SVG to the user, collect the answer

	session, err := client.Login(ctx, adminsdk.LoginRequest{
		Username:  "admin",
		Password:  "password123",
		CaptchaID: captcha.ID,
		Captcha:   answer,
	})
	if session.Temporary() {
		// the account has TOTP enabled, exchange the two-factor token
		session, err = session.LoginWith2FA(ctx, otpCode)
	}

	profile, err := session.Profile(ctx)

# Errors

Every non-2xx response is returned as an *APIError. The predefined errors compare
by code, so callers can use errors.Is:

	if errors.Is(err, adminsdk.ErrInvalidToken) {
		// session expired or revoked, log in again
	}

The server writes its error responses with the same types, so the wire format
cannot drift between the two sides.
*/
package adminsdk

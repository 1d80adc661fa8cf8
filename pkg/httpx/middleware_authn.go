package httpx

import (
	"net/http"
	"strings"
)

// BearerToken extracts the opaque token from the Authorization header. Both
// "Bearer <token>" and a bare token are accepted since older admin frontends
// send the token without a scheme.
func BearerToken(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" || strings.EqualFold(authz, "Bearer") {
		return "", false
	}

	if scheme, rest, ok := strings.Cut(authz, " "); ok && strings.EqualFold(scheme, "Bearer") {
		authz = strings.TrimSpace(rest)
	}
	if authz == "" || strings.ContainsAny(authz, " \t") {
		return "", false
	}
	return authz, true
}

// WriteBearerError writes an RFC 6750-compliant 401 response for bearer auth.
func WriteBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}

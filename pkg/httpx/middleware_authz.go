package httpx

import (
	"net/http"

	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// PermissionCheck reports whether the request may perform action on resource.
type PermissionCheck func(r *http.Request, action, resource string) (bool, error)

// RequirePermission rejects requests for which check denies (action, resource)
// with 403. Errors from check are treated as a denial and surface as 500.
func RequirePermission(check PermissionCheck, action, resource string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := check(r, action, resource)
			if err != nil {
				slogx.FromContext(r.Context()).Error("permission check failed",
					"action", action,
					"resource", resource,
					"err", err,
				)
				WriteError(w, http.StatusInternalServerError, "server_error", "Failed to evaluate permissions")
				return
			}
			if !allowed {
				writePermissionError(w, action, resource)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writePermissionError(w http.ResponseWriter, action, resource string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+action+":"+resource+`"`)
	WriteError(w, http.StatusForbidden, "insufficient_permission", "Missing permission "+action+":"+resource)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

type principalKey struct{}

// auditState is shared between the audit middleware and the inner
// middlewares so the audit entry can name the authenticated caller.
type auditState struct {
	principal *domain.Principal
}

type auditKey struct{}

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	if st, ok := ctx.Value(auditKey{}).(*auditState); ok {
		st.principal = &p
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFrom returns the caller attached by authenticate.
func principalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// authenticate validates the bearer token and rejects tokens whose scope is
// not in scopes. Every denial looks the same to the client; cache or store
// failures are reported as 5xx and never let the request through.
func (r *Router) authenticate(scopes ...domain.Scope) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			token, ok := httpx.BearerToken(req)
			if !ok {
				httpx.WriteBearerError(w, tokenDenied)
				return
			}

			p, err := r.Tokens.Validate(req.Context(), token)
			if err != nil {
				writeError(w, req, err)
				return
			}
			if !slices.Contains(scopes, p.Scope) {
				slogx.FromContext(req.Context()).Info("token scope rejected",
					"user_id", p.User.ID,
					"scope", p.Scope,
				)
				httpx.WriteBearerError(w, tokenDenied)
				return
			}

			userID := strconv.FormatInt(p.User.ID, 10)
			ctx := withPrincipal(req.Context(), p)
			ctx = httpx.WithUserID(ctx, userID)
			ctx = slogx.With(ctx, "user_id", userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// permissionCheck adapts the resolver to httpx.RequirePermission.
func (r *Router) permissionCheck(req *http.Request, action, resource string) (bool, error) {
	p, ok := principalFrom(req.Context())
	if !ok {
		return false, nil
	}
	return r.Resolver.Allowed(req.Context(), &p, domain.Requirement{Action: action, Resource: resource})
}

// maxAuditBodyBytes bounds how much of a JSON body is copied into the audit payload.
const maxAuditBodyBytes = 1 << 20

// audit records an operation log entry once the handler has finished.
// The action and resource come from the route requirement, falling back to
// the HTTP method and the first path segment after /api.
func (r *Router) audit(req domain.Requirement) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, hr *http.Request) {
			if r.OperationLogs == nil || skipAudit(hr) {
				next.ServeHTTP(w, hr)
				return
			}

			body := auditBody(hr)
			st := &auditState{}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			inner := hr.WithContext(context.WithValue(hr.Context(), auditKey{}, st))

			next.ServeHTTP(rec, inner)

			action, resource := req.Action, req.Resource
			if action == "" {
				action = service.ActionForMethod(hr.Method)
			}
			if resource == "" {
				resource = resourceFromPath(hr.URL.Path)
			}

			entry := domain.OperationLog{
				Action:     action,
				Resource:   resource,
				Method:     hr.Method,
				Path:       hr.URL.Path,
				IP:         httpx.IPKeyExtractor(hr),
				UserAgent:  hr.UserAgent(),
				StatusCode: rec.status,
			}
			if st.principal != nil {
				id := st.principal.User.ID
				entry.UserID = &id
				entry.Username = st.principal.User.Username
			}

			payload := map[string]any{
				"params": pathParams(inner),
				"query":  queryParams(hr),
				"body":   body,
			}
			r.OperationLogs.Record(context.WithoutCancel(hr.Context()), entry, payload)
		})
	}
}

func skipAudit(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	return r.URL.Path == "/api/operation-logs" || strings.HasPrefix(r.URL.Path, "/api/operation-logs/")
}

// auditBody decodes a JSON request body and restores it for the handler.
// Other content types are not recorded.
func auditBody(r *http.Request) any {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "application/json" {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxAuditBodyBytes+1))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) > maxAuditBodyBytes {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func resourceFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(rest, "/")
	return first
}

// pathParams collects the wildcards of the matched route pattern.
func pathParams(r *http.Request) map[string]any {
	params := map[string]any{}
	pattern := r.Pattern
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			break
		}
		name := strings.TrimSuffix(pattern[start+1:start+end], "...")
		if name != "$" {
			params[name] = r.PathValue(name)
		}
		pattern = pattern[start+end+1:]
	}
	return params
}

func queryParams(r *http.Request) map[string]any {
	out := map[string]any{}
	for k, v := range r.URL.Query() {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// requirePrincipal fetches the caller or writes a 401. Handlers behind
// authenticate always have one.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		httpx.WriteBearerError(w, tokenDenied)
		return domain.Principal{}, false
	}
	return p, true
}

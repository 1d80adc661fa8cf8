package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordsMutations(t *testing.T) {
	env := newAPIEnv(t)
	admin := env.adminToken(t)

	rec := env.do(t, http.MethodPost, "/api/users", admin, adminsdk.CreateUserRequest{
		Username: "carol", Password: "secret-pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	carol := decode[adminsdk.UserResponse](t, rec)

	rec = env.do(t, http.MethodDelete, "/api/users/"+itoa(carol.ID)+"?reason=cleanup", admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/operation-logs?resource=account&pageSize=100", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logs := decode[adminsdk.PageResponse[adminsdk.OperationLogResponse]](t, rec)

	var created, deleted *adminsdk.OperationLogResponse
	for i := range logs.List {
		switch logs.List[i].Action {
		case "create":
			created = &logs.List[i]
		case "delete":
			deleted = &logs.List[i]
		}
	}
	require.NotNil(t, created)
	require.NotNil(t, deleted)

	require.Equal(t, "admin", created.Username)
	require.Equal(t, http.MethodPost, created.Method)
	require.Equal(t, "/api/users", created.Path)
	require.Equal(t, http.StatusCreated, created.StatusCode)

	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(created.Payload), &payload))
	require.Equal(t, "carol", payload["body"]["username"])
	require.Equal(t, service.MaskedValue, payload["body"]["password"])

	require.Equal(t, http.StatusNoContent, deleted.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(deleted.Payload), &payload))
	require.Equal(t, itoa(carol.ID), payload["params"]["id"])
	require.Equal(t, "cleanup", payload["query"]["reason"])
}

func TestAuditAttributesLogins(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.login(t, "john.doe", "wrong-pw")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	john := env.token(t, "john.doe", service.DefaultSeedPassword).AccessToken

	// Reading the trail is not itself recorded.
	for range 3 {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/operation-logs/me", john, nil).Code)
	}

	admin := env.adminToken(t)
	rec = env.do(t, http.MethodGet, "/api/operation-logs?resource=auth&method=post&pageSize=100", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logs := decode[adminsdk.PageResponse[adminsdk.OperationLogResponse]](t, rec)

	var statuses []int
	for _, l := range logs.List {
		require.Equal(t, "/api/auth/login", l.Path)
		require.Equal(t, "create", l.Action)
		require.NotContains(t, l.Payload, "wrong-pw")
		require.NotContains(t, l.Payload, service.DefaultSeedPassword)
		statuses = append(statuses, l.StatusCode)
	}
	require.ElementsMatch(t, []int{http.StatusUnauthorized, http.StatusOK, http.StatusOK}, statuses)

	rec = env.do(t, http.MethodGet, "/api/operation-logs?resource=operation-logs", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, decode[adminsdk.PageResponse[adminsdk.OperationLogResponse]](t, rec).Total)

	rec = env.do(t, http.MethodGet, "/api/operation-logs?statusCode=abc", admin, nil)
	requireError(t, rec, http.StatusBadRequest, adminsdk.ErrorCodeInvalidRequest)
}

func TestResourceFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/users", "users"},
		{"/api/users/12", "users"},
		{"/api/auth/login", "auth"},
		{"/livez", ""},
		{"/api/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, resourceFromPath(tt.path))
		})
	}
}

func TestPathParams(t *testing.T) {
	mux := http.NewServeMux()
	var got map[string]any
	mux.HandleFunc("GET /api/export-tasks/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		got = pathParams(r)
	})
	mux.HandleFunc("GET /files/{path...}", func(w http.ResponseWriter, r *http.Request) {
		got = pathParams(r)
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/export-tasks/7/download", nil))
	require.Equal(t, map[string]any{"id": "7"}, got)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/files/a/b.csv", nil))
	require.Equal(t, map[string]any{"path": "a/b.csv"}, got)
}

func TestAuthenticateRejectsWrongScope(t *testing.T) {
	env := newAPIEnv(t)
	token := env.adminToken(t)

	// An access token cannot stand in for the two-factor step.
	rec := env.do(t, http.MethodPost, "/api/auth/login/2fa", token, adminsdk.OTPCodeRequest{Code: "123456"})
	requireError(t, rec, http.StatusUnauthorized, adminsdk.ErrorCodeInvalidToken)
	require.Equal(t, tokenDenied, decode[adminsdk.ErrorResponse](t, rec).ErrorDescription)

	rec = env.do(t, http.MethodGet, "/api/auth/profile", "not-a-token", nil)
	requireError(t, rec, http.StatusUnauthorized, adminsdk.ErrorCodeInvalidToken)
	require.Equal(t, tokenDenied, decode[adminsdk.ErrorResponse](t, rec).ErrorDescription)
}

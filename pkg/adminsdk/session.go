package adminsdk

import (
	"context"
	"io"
	"net/http"
	"strconv"
)

// Session performs requests with a bearer token. The server renews access
// tokens on use, so a Session never refreshes anything itself.
type Session struct {
	client    *Client
	token     string
	temporary bool
}

// Token returns the bearer token.
func (s *Session) Token() string { return s.token }

// Temporary reports whether the token is a two-factor token that only
// unlocks the OTP endpoints.
func (s *Session) Temporary() bool { return s.temporary }

func (s *Session) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	return s.client.doRequest(ctx, method, path, s.token, payload)
}

func (s *Session) exchange(ctx context.Context, path, code string) (*Session, error) {
	resp, err := s.do(ctx, http.MethodPost, path, OTPCodeRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &Session{client: s.client, token: tok.AccessToken}, nil
}

// LoginWith2FA exchanges a two-factor token and a TOTP code for a full session.
func (s *Session) LoginWith2FA(ctx context.Context, code string) (*Session, error) {
	return s.exchange(ctx, "/api/auth/login/2fa", code)
}

// GenerateOTP starts TOTP enrollment, replacing any previous secret.
func (s *Session) GenerateOTP(ctx context.Context) (*OTPSetupResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/api/auth/otp/generate", nil)
	if err != nil {
		return nil, err
	}

	var setup OTPSetupResponse
	if err := decodeJSON(resp, &setup, http.StatusOK); err != nil {
		return nil, err
	}
	return &setup, nil
}

// EnableOTP confirms enrollment and returns a session with a fresh access token.
func (s *Session) EnableOTP(ctx context.Context, code string) (*Session, error) {
	return s.exchange(ctx, "/api/auth/otp/enable", code)
}

func (s *Session) Profile(ctx context.Context) (*ProfileResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/auth/profile", nil)
	if err != nil {
		return nil, err
	}

	var profile ProfileResponse
	if err := decodeJSON(resp, &profile, http.StatusOK); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout revokes this session's token.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/api/auth/logout", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// LogoutAll revokes every token of the caller, on every device.
func (s *Session) LogoutAll(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/api/auth/logout/all", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// CreateUser requires create:account.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/api/users", req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser requires update:account.
func (s *Session) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodPatch, "/api/users/"+strconv.FormatInt(id, 10), req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser requires read:account.
func (s *Session) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/users/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser requires delete:account.
func (s *Session) DeleteUser(ctx context.Context, id int64) error {
	resp, err := s.do(ctx, http.MethodDelete, "/api/users/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// CreateRole requires create:role.
func (s *Session) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/api/roles", req)
	if err != nil {
		return nil, err
	}

	var role RoleResponse
	if err := decodeJSON(resp, &role, http.StatusCreated); err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRole requires update:role.
func (s *Session) UpdateRole(ctx context.Context, id int64, req UpdateRoleRequest) (*RoleResponse, error) {
	resp, err := s.do(ctx, http.MethodPatch, "/api/roles/"+strconv.FormatInt(id, 10), req)
	if err != nil {
		return nil, err
	}

	var role RoleResponse
	if err := decodeJSON(resp, &role, http.StatusOK); err != nil {
		return nil, err
	}
	return &role, nil
}

// ListPermissions requires read:permission.
func (s *Session) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/permissions", nil)
	if err != nil {
		return nil, err
	}

	var perms []PermissionResponse
	if err := decodeJSON(resp, &perms, http.StatusOK); err != nil {
		return nil, err
	}
	return perms, nil
}

// CreateExportTask requires create:export-task. The task runs in the background.
func (s *Session) CreateExportTask(ctx context.Context, req CreateExportTaskRequest) (*ExportTaskResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/api/export-tasks", req)
	if err != nil {
		return nil, err
	}

	var task ExportTaskResponse
	if err := decodeJSON(resp, &task, http.StatusCreated); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListExportTasks requires read:export-task.
func (s *Session) ListExportTasks(ctx context.Context) (*PageResponse[ExportTaskResponse], error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/export-tasks?pageSize=100", nil)
	if err != nil {
		return nil, err
	}

	var page PageResponse[ExportTaskResponse]
	if err := decodeJSON(resp, &page, http.StatusOK); err != nil {
		return nil, err
	}
	return &page, nil
}

// DownloadExport returns the file of a successful export task.
func (s *Session) DownloadExport(ctx context.Context, id int64) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/export-tasks/"+strconv.FormatInt(id, 10)+"/download", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp, body)
	}
	return body, nil
}

// ListMyOperationLogs returns the caller's own audit trail, newest first.
func (s *Session) ListMyOperationLogs(ctx context.Context) (*PageResponse[OperationLogResponse], error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/operation-logs/me?pageSize=100", nil)
	if err != nil {
		return nil, err
	}

	var page PageResponse[OperationLogResponse]
	if err := decodeJSON(resp, &page, http.StatusOK); err != nil {
		return nil, err
	}
	return &page, nil
}

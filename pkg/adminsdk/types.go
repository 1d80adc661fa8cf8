package adminsdk

import "time"

// ErrorResponse is the JSON error body, see APIError.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// HealthResponse is returned by /livez and /readyz. Checks is only set by /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports "ok" or "error" per dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// PageResponse is one page of a listing.
type PageResponse[T any] struct {
	List     []T `json:"list"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// ============================================================================
// Auth
// ============================================================================

type CaptchaResponse struct {
	ID  string `json:"id"`
	SVG string `json:"svg"`
}

type LoginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	CaptchaID string `json:"captchaId"`
	Captcha   string `json:"captcha"`
}

// LoginResponse carries an access token, or a two-factor token when
// IsTemporary is true.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	IsTemporary bool   `json:"isTemporary"`
}

// OTPCodeRequest is the body of the 2FA login step and of OTP enrollment.
type OTPCodeRequest struct {
	Code string `json:"code"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type OTPSetupResponse struct {
	Secret        string `json:"secret"`
	OTPAuthURL    string `json:"otpAuthUrl"`
	QRCodeDataURL string `json:"qrCodeDataUrl"`
}

// ProfileResponse is the caller's account plus the permissions it holds.
type ProfileResponse struct {
	UserResponse
	Permissions []PermissionResponse `json:"permissions"`
}

// ============================================================================
// Accounts
// ============================================================================

// UserResponse never includes the password hash or the OTP secret.
type UserResponse struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	IsOTPEnabled bool           `json:"isOtpEnabled"`
	DepartmentID *int64         `json:"departmentId"`
	PositionID   *int64         `json:"positionId"`
	Roles        []RoleResponse `json:"roles"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type CreateUserRequest struct {
	Username     string  `json:"username"`
	Password     string  `json:"password"`
	RoleIDs      []int64 `json:"roleIds"`
	DepartmentID *int64  `json:"departmentId,omitempty"`
	PositionID   *int64  `json:"positionId,omitempty"`
}

// UpdateUserRequest is a partial update; omitted fields are left unchanged.
type UpdateUserRequest struct {
	Username     *string  `json:"username,omitempty"`
	Password     *string  `json:"password,omitempty"`
	RoleIDs      *[]int64 `json:"roleIds,omitempty"`
	DepartmentID *int64   `json:"departmentId,omitempty"`
	PositionID   *int64   `json:"positionId,omitempty"`
}

type IDsRequest struct {
	IDs []int64 `json:"ids"`
}

type ImportErrorResponse struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResponse struct {
	SuccessCount int                   `json:"successCount"`
	FailCount    int                   `json:"failCount"`
	Errors       []ImportErrorResponse `json:"errors"`
}

// ============================================================================
// Roles and permissions
// ============================================================================

type RoleResponse struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	IsSuperAdmin bool                 `json:"isSuperAdmin"`
	Permissions  []PermissionResponse `json:"permissions,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

type CreateRoleRequest struct {
	Name          string  `json:"name"`
	PermissionIDs []int64 `json:"permissionIds"`
}

// UpdateRoleRequest is a partial update. A non-nil PermissionIDs replaces the set.
type UpdateRoleRequest struct {
	Name          *string  `json:"name,omitempty"`
	PermissionIDs *[]int64 `json:"permissionIds,omitempty"`
}

type PermissionResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	ParentID *int64 `json:"parentId"`
	Sort     int    `json:"sort"`
}

// PermissionRequest creates a permission, or replaces every field of one.
type PermissionRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	ParentID *int64 `json:"parentId,omitempty"`
	Sort     int    `json:"sort"`
}

// ============================================================================
// Organization
// ============================================================================

type DepartmentResponse struct {
	ID        int64                 `json:"id"`
	Name      string                `json:"name"`
	ParentID  *int64                `json:"parentId"`
	Sort      int                   `json:"sort"`
	Children  []*DepartmentResponse `json:"children,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type DepartmentRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId,omitempty"`
	Sort     int    `json:"sort"`
}

type PositionResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	DepartmentID   *int64    `json:"departmentId"`
	DepartmentName string    `json:"departmentName,omitempty"`
	Sort           int       `json:"sort"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type PositionRequest struct {
	Name         string `json:"name"`
	DepartmentID *int64 `json:"departmentId,omitempty"`
	Sort         int    `json:"sort"`
}

// OptionResponse is a select-box entry.
type OptionResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ============================================================================
// Operation logs and export tasks
// ============================================================================

type OperationLogResponse struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"userId"`
	Username   string    `json:"username"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
	Payload    string    `json:"payload"`
	StatusCode int       `json:"statusCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CreateExportTaskRequest struct {
	Type   string         `json:"type"`
	Format string         `json:"format"`
	Params map[string]any `json:"params,omitempty"`
}

type ExportTaskResponse struct {
	ID         int64          `json:"id"`
	Type       string         `json:"type"`
	Format     string         `json:"format"`
	Status     string         `json:"status"`
	Params     map[string]any `json:"params,omitempty"`
	FileName   string         `json:"fileName,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedBy  int64          `json:"createdBy"`
	CreatedAt  time.Time      `json:"createdAt"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
}

package http

import (
	"encoding/json"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
)

func toUserResponse(u domain.User) adminsdk.UserResponse {
	roles := make([]adminsdk.RoleResponse, len(u.Roles))
	for i, role := range u.Roles {
		// Role permissions stay off account payloads; the profile lists them separately.
		roles[i] = adminsdk.RoleResponse{
			ID:           role.ID,
			Name:         role.Name,
			IsSuperAdmin: role.IsSuperAdmin,
			CreatedAt:    role.CreatedAt,
			UpdatedAt:    role.UpdatedAt,
		}
	}
	return adminsdk.UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		IsOTPEnabled: u.OTPEnabled,
		DepartmentID: u.DepartmentID,
		PositionID:   u.PositionID,
		Roles:        roles,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toRoleResponse(r domain.Role) adminsdk.RoleResponse {
	return adminsdk.RoleResponse{
		ID:           r.ID,
		Name:         r.Name,
		IsSuperAdmin: r.IsSuperAdmin,
		Permissions:  mapSlice(r.Permissions, toPermissionResponse),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toPermissionResponse(p domain.Permission) adminsdk.PermissionResponse {
	return adminsdk.PermissionResponse{
		ID:       p.ID,
		Name:     p.Name,
		Type:     string(p.Type),
		Action:   p.Action,
		Resource: p.Resource,
		ParentID: p.ParentID,
		Sort:     p.Sort,
	}
}

func toDepartmentResponse(d *domain.Department) *adminsdk.DepartmentResponse {
	out := &adminsdk.DepartmentResponse{
		ID:        d.ID,
		Name:      d.Name,
		ParentID:  d.ParentID,
		Sort:      d.Sort,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, c := range d.Children {
		out.Children = append(out.Children, toDepartmentResponse(c))
	}
	return out
}

func toPositionResponse(p domain.Position) adminsdk.PositionResponse {
	return adminsdk.PositionResponse{
		ID:             p.ID,
		Name:           p.Name,
		DepartmentID:   p.DepartmentID,
		DepartmentName: p.DepartmentName,
		Sort:           p.Sort,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toOperationLogResponse(l domain.OperationLog) adminsdk.OperationLogResponse {
	return adminsdk.OperationLogResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		Username:   l.Username,
		Action:     l.Action,
		Resource:   l.Resource,
		Method:     l.Method,
		Path:       l.Path,
		IP:         l.IP,
		UserAgent:  l.UserAgent,
		Payload:    l.Payload,
		StatusCode: l.StatusCode,
		CreatedAt:  l.CreatedAt,
	}
}

func toExportTaskResponse(t domain.ExportTask) adminsdk.ExportTaskResponse {
	var params map[string]any
	if t.Params != "" {
		_ = json.Unmarshal([]byte(t.Params), &params)
	}
	return adminsdk.ExportTaskResponse{
		ID:         t.ID,
		Type:       t.Type,
		Format:     string(t.Format),
		Status:     string(t.Status),
		Params:     params,
		FileName:   t.FileName,
		Error:      t.Error,
		CreatedBy:  t.CreatedBy,
		CreatedAt:  t.CreatedAt,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
	}
}

func toPage[T, R any](res domain.PageResult[T], conv func(T) R) adminsdk.PageResponse[R] {
	return adminsdk.PageResponse[R]{
		List:     mapSlice(res.List, conv),
		Total:    res.Total,
		Page:     res.Page,
		PageSize: res.PageSize,
	}
}

// mapSlice converts in; the result is never nil so lists encode as [].
func mapSlice[T, R any](in []T, conv func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = conv(v)
	}
	return out
}

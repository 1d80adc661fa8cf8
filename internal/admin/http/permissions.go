package http

import (
	"net/http"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/max950509/web-admin-fullstack-template/pkg/adminsdk"
	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
)

// PermissionsHandler serves /api/permissions.
type PermissionsHandler struct {
	Permissions *service.PermissionService
}

func permissionFromRequest(id int64, req adminsdk.PermissionRequest) domain.Permission {
	return domain.Permission{
		ID:       id,
		Name:     req.Name,
		Type:     domain.PermissionType(req.Type),
		Action:   req.Action,
		Resource: req.Resource,
		ParentID: req.ParentID,
		Sort:     req.Sort,
	}
}

// HandleCreate handles POST /api/permissions
//
//	@Summary		Create a permission
//	@Description	type defaults to action and name to "action:resource".
//	@Tags			Permissions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		adminsdk.PermissionRequest	true	"Permission"
//	@Success		201		{object}	adminsdk.PermissionResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Validation failed"
//	@Router			/api/permissions [post].
func (h *PermissionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.PermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.Permissions.CreatePermission(r.Context(), permissionFromRequest(0, req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPermissionResponse(p))
}

// HandleList handles GET /api/permissions
//
//	@Summary		List permissions
//	@Description	Flat list ordered by sort; parentId arranges it into the menu tree.
//	@Tags			Permissions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}	adminsdk.PermissionResponse
//	@Router			/api/permissions [get].
func (h *PermissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Permissions.ListPermissions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(perms, toPermissionResponse))
}

// HandleGet handles GET /api/permissions/{id}
//
//	@Summary		Get a permission
//	@Tags			Permissions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Permission id"
//	@Success		200	{object}	adminsdk.PermissionResponse
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such permission"
//	@Router			/api/permissions/{id} [get].
func (h *PermissionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Permissions.GetPermission(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPermissionResponse(p))
}

// HandleUpdate handles PATCH /api/permissions/{id}
//
//	@Summary		Replace a permission
//	@Tags			Permissions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Permission id"
//	@Param			request	body		adminsdk.PermissionRequest	true	"Permission"
//	@Success		200		{object}	adminsdk.PermissionResponse
//	@Failure		400		{object}	adminsdk.ErrorResponse	"Validation failed"
//	@Failure		404		{object}	adminsdk.ErrorResponse	"No such permission"
//	@Router			/api/permissions/{id} [patch].
func (h *PermissionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adminsdk.PermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.Permissions.UpdatePermission(r.Context(), permissionFromRequest(id, req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPermissionResponse(p))
}

// HandleDelete handles DELETE /api/permissions/{id}
//
//	@Summary		Delete a permission
//	@Tags			Permissions
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Permission id"
//	@Success		204	"Deleted"
//	@Failure		400	{object}	adminsdk.ErrorResponse	"Still has children"
//	@Failure		404	{object}	adminsdk.ErrorResponse	"No such permission"
//	@Router			/api/permissions/{id} [delete].
func (h *PermissionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Permissions.DeletePermission(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
